package scoring

import "github.com/noah-isme/gradebook-api/internal/models"

// TrendResult compares a class average with the previous assessment of the
// same kind. Both fields are nil when there is no usable baseline.
type TrendResult struct {
	Percent      *float64
	BaselineName *string
}

// PreviousAssessment picks the baseline for target among candidates: same
// class, same kind, not the target itself. A dated target is compared by date
// and only dated candidates strictly before it qualify; an undated target is
// compared by creation time. Ties on the key go to the later creation time,
// then to the greater ID.
func PreviousAssessment(target models.Assessment, candidates []models.Assessment) (models.Assessment, bool) {
	var best *models.Assessment
	for i := range candidates {
		c := &candidates[i]
		if c.ID == target.ID || c.ClassID != target.ClassID || c.Kind != target.Kind {
			continue
		}
		if !precedes(*c, target) {
			continue
		}
		if best == nil || later(*c, *best, target.Date != nil) {
			best = c
		}
	}
	if best == nil {
		return models.Assessment{}, false
	}
	return *best, true
}

func precedes(candidate, target models.Assessment) bool {
	if target.Date != nil {
		return candidate.Date != nil && candidate.Date.Before(*target.Date)
	}
	return candidate.CreatedAt.Before(target.CreatedAt)
}

// later reports whether a sorts after b on the selection key.
func later(a, b models.Assessment, byDate bool) bool {
	if byDate && !a.Date.Equal(*b.Date) {
		return a.Date.After(*b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// TrendPercent is the signed change from previous to current in percent,
// rounded to two decimals. ok is false for a zero baseline. A change smaller
// than 0.005% in either direction rounds to 0.
func TrendPercent(current, previous float64) (float64, bool) {
	if previous == 0 {
		return 0, false
	}
	return Round2((current - previous) / previous * 100), true
}

// Trend compares the class average of target with that of its previous
// assessment found among history.
func Trend(target Sheet, history []Sheet) TrendResult {
	assessments := make([]models.Assessment, len(history))
	for i, h := range history {
		assessments[i] = h.Assessment
	}
	previous, ok := PreviousAssessment(target.Assessment, assessments)
	if !ok {
		return TrendResult{}
	}
	var baseline Sheet
	for _, h := range history {
		if h.Assessment.ID == previous.ID {
			baseline = h
			break
		}
	}
	percent, ok := TrendPercent(target.ClassAverage(), baseline.ClassAverage())
	if !ok {
		return TrendResult{}
	}
	name := previous.Name
	return TrendResult{Percent: &percent, BaselineName: &name}
}
