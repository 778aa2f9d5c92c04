package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
)

const maxListLimit = 200

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		at, err := time.ParseInLocation(appointment.DateLayout+" "+appointment.ClockLayout,
			req.Date+" "+req.StartTime, svc.Location())
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_schedule", "date must be YYYY-MM-DD and start_time HH:MM")
			return
		}

		appt, err := svc.Create(r.Context(), appointment.NewAppointment{
			PatientName:  req.PatientName,
			PatientPhone: req.PatientPhone,
			PatientEmail: req.PatientEmail,
			ScheduledAt:  at,
			DoctorID:     doctorID,
			Reason:       req.Reason,
			Notes:        req.Notes,
		})
		if err != nil {
			handleCreateError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appt)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := appointment.ListFilter{
			Status: appointment.Status(q.Get("status")),
			Phone:  q.Get("phone"),
		}

		if v := q.Get("doctor_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			f.DoctorID = id
		}

		var ok bool
		if f.Limit, ok = intParam(w, q.Get("limit"), "limit", 50, maxListLimit); !ok {
			return
		}
		if f.Offset, ok = intParam(w, q.Get("offset"), "offset", 0, -1); !ok {
			return
		}

		appts, err := svc.List(r.Context(), f)
		if err != nil {
			if errors.Is(err, appointment.ErrInvalidStatus) {
				writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if appts == nil {
			appts = []appointment.Appointment{}
		}

		writeJSON(w, http.StatusOK, AppointmentListResponse{Appointments: appts, Count: len(appts)})
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func updateStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateStatus(r.Context(), id, appointment.Status(strings.ToLower(req.Status)))
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Cancel(r.Context(), id)
		if err != nil {
			handleStatusError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

// availableSlotsHandler serves both /api/slots/available?doctor_id= and
// /api/doctors/{id}/slots.
func availableSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		raw := chi.URLParam(r, "id")
		if raw == "" {
			raw = q.Get("doctor_id")
		}
		doctorID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		sq := appointment.SlotQuery{DoctorID: doctorID}
		if v := q.Get("date"); v != "" {
			from, err := time.ParseInLocation(appointment.DateLayout, v, svc.Location())
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			sq.From = from
		}
		if v := q.Get("time"); v != "" {
			tod, ok := appointment.ParseTimeOfDay(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_time", "time must be morning, afternoon or evening")
				return
			}
			sq.TimeOfDay = tod
		}

		var ok bool
		if sq.Days, ok = intParam(w, q.Get("days"), "days", 0, 60); !ok {
			return
		}
		if sq.Limit, ok = intParam(w, q.Get("limit"), "limit", 0, maxListLimit); !ok {
			return
		}

		slots, err := svc.FindSlots(r.Context(), sq)
		if err != nil {
			if errors.Is(err, doctor.ErrDoctorNotFound) {
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if slots == nil {
			slots = []appointment.SlotCandidate{}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Slots: slots, Count: len(slots)})
	}
}

func handleCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrMissingPatientDetails):
		writeError(w, http.StatusBadRequest, "missing_patient_details", err.Error())
	case errors.Is(err, doctor.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrOutsideAvailability):
		writeError(w, http.StatusUnprocessableEntity, "outside_availability", err.Error())
	case errors.Is(err, appointment.ErrSlotInPast):
		writeError(w, http.StatusUnprocessableEntity, "slot_in_past", err.Error())
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// intParam parses an optional non-negative query parameter. max < 0 means
// unbounded; values above max are clamped.
func intParam(w http.ResponseWriter, raw, name string, def, max int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
		return 0, false
	}
	if max >= 0 && n > max {
		n = max
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
