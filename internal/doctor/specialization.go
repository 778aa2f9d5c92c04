package doctor

import (
	"regexp"
	"strings"
)

type keywordRule struct {
	specialization Specialization
	patterns       []*regexp.Regexp
}

// Order matters: the first specialization with a matching keyword wins.
var keywordTable = buildKeywordTable([]struct {
	specialization Specialization
	keywords       []string
}{
	{Cardiologist, []string{"heart", "chest pain", "cardiac", "blood pressure", "cholesterol"}},
	{Dermatologist, []string{"skin", "rash", "acne", "eczema", "mole", "hair"}},
	{Pediatrician, []string{"child", "baby", "infant", "kid", "pediatric"}},
	{Orthopedic, []string{"bone", "joint", "fracture", "back pain", "knee", "arthritis"}},
	{Gynecologist, []string{"pregnancy", "gynec", "menstrual", "women", "obstetric"}},
	{ENTSpecialist, []string{"ear", "nose", "throat", "ent", "sinus", "hearing"}},
	{Ophthalmologist, []string{"eye", "vision", "glasses", "cataract"}},
	{Psychiatrist, []string{"mental", "depression", "anxiety", "stress", "psychiatric"}},
	{Dentist, []string{"tooth", "teeth", "dental", "gum", "cavity"}},
})

func buildKeywordTable(rows []struct {
	specialization Specialization
	keywords       []string
}) []keywordRule {
	table := make([]keywordRule, 0, len(rows))
	for _, row := range rows {
		rule := keywordRule{specialization: row.specialization}
		for _, kw := range row.keywords {
			// anchored at a word start so "ent" does not fire inside "dental"
			rule.patterns = append(rule.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)))
		}
		table = append(table, rule)
	}
	return table
}

// InferSpecialization maps a free-text visit reason to a specialization
// using the static keyword table.
func InferSpecialization(reason string) (Specialization, bool) {
	text := strings.ToLower(reason)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, rule := range keywordTable {
		for _, p := range rule.patterns {
			if p.MatchString(text) {
				return rule.specialization, true
			}
		}
	}
	return "", false
}
