package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeNeverErases(t *testing.T) {
	known := PatientInfo{Name: "Aisha Khan", Phone: "9876543210", Reason: "skin rash"}
	update := PatientInfo{Name: "null", Phone: "", Reason: "  ", PreferredTime: "morning"}

	got := Merge(known, update)
	assert.Equal(t, "Aisha Khan", got.Name)
	assert.Equal(t, "9876543210", got.Phone)
	assert.Equal(t, "skin rash", got.Reason)
	assert.Equal(t, "morning", got.PreferredTime)
}

func TestMergeIsIdempotent(t *testing.T) {
	cases := []struct {
		a, b PatientInfo
	}{
		{PatientInfo{}, PatientInfo{Name: "Ravi"}},
		{PatientInfo{Name: "Ravi", Reason: "cough"}, PatientInfo{Name: "NULL", Phone: "9000000000"}},
		{PatientInfo{Phone: "9000000000"}, PatientInfo{Phone: "9111111111", DoctorPreference: " Sharma "}},
	}
	for _, c := range cases {
		once := Merge(c.a, c.b)
		assert.Equal(t, once, Merge(once, c.b))
	}
}

func TestMergeUpgradesValues(t *testing.T) {
	got := Merge(PatientInfo{Phone: "9000000000"}, PatientInfo{Phone: "9111111111"})
	assert.Equal(t, "9111111111", got.Phone)
}

func TestHasRequiredInfo(t *testing.T) {
	assert.False(t, HasRequiredInfo(PatientInfo{}))
	assert.False(t, HasRequiredInfo(PatientInfo{Name: "A", Phone: "9876543210", Reason: "null"}))
	assert.True(t, HasRequiredInfo(PatientInfo{Name: "A", Phone: "9876543210", Reason: "fever"}))
}

func TestMissing(t *testing.T) {
	assert.Equal(t, []string{"name", "phone", "reason"}, Missing(PatientInfo{}))
	assert.Equal(t, []string{"reason"}, Missing(PatientInfo{Name: "A", Phone: "1234567"}))
	assert.Empty(t, Missing(PatientInfo{Name: "A", Phone: "1234567", Reason: "x"}))
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want PatientInfo
	}{
		{
			name: "clean values",
			raw: map[string]any{
				"patient_name": "Aisha  Khan", "patient_phone": "98765-43210", "reason": "skin rash",
				"preferred_date": "2025-03-04", "preferred_time": "Morning",
			},
			want: PatientInfo{Name: "Aisha Khan", Phone: "9876543210", Reason: "skin rash",
				PreferredDate: "2025-03-04", PreferredTime: "morning"},
		},
		{
			name: "numeric phone",
			raw:  map[string]any{"patient_phone": float64(9876543210)},
			want: PatientInfo{Phone: "9876543210"},
		},
		{
			name: "wrong types and shapes dropped",
			raw: map[string]any{
				"patient_name": 42, "patient_phone": "call me", "reason": []any{"x"},
				"preferred_date": "tomorrow", "preferred_time": "midnight", "patient_email": "nope",
			},
			want: PatientInfo{},
		},
		{
			name: "short phone",
			raw:  map[string]any{"patient_phone": "12345"},
			want: PatientInfo{},
		},
		{
			name: "international phone and email",
			raw:  map[string]any{"patient_phone": "+91 98765 43210", "patient_email": "a@b.in"},
			want: PatientInfo{Phone: "+919876543210", Email: "a@b.in"},
		},
		{
			name: "null sentinel",
			raw:  map[string]any{"patient_name": "null", "doctor_preference": nil},
			want: PatientInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.raw))
		})
	}
}
