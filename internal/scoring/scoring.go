// Package scoring computes weighted feedback scores, letter grades and
// cohort-level summary statistics. It is pure computation: no I/O, no
// shared state, safe for concurrent use.
package scoring

import (
	"errors"
	"fmt"
)

var ErrInvalidScoringInput = errors.New("invalid scoring input")

// ComputeWeightedScore turns a respondent's ratings into a 0-100 score and
// its letter grade. The score is 100 * sum(rating*weight) / (RatingMax *
// sum(weight)), so each question contributes proportionally to its weight.
func ComputeWeightedScore(ratings []QuestionRating) (float64, Grade, error) {
	var weighted, totalWeight float64
	for _, r := range ratings {
		if r.Rating < 1 || r.Rating > RatingMax {
			return 0, "", fmt.Errorf("%w: rating %d out of range 1..%d (question %d)",
				ErrInvalidScoringInput, r.Rating, RatingMax, r.QuestionID)
		}
		if r.Weight < 0 {
			return 0, "", fmt.Errorf("%w: negative weight %g (question %d)",
				ErrInvalidScoringInput, r.Weight, r.QuestionID)
		}
		weighted += float64(r.Rating) * r.Weight
		totalWeight += r.Weight
	}
	if totalWeight == 0 {
		return 0, "", fmt.Errorf("%w: total weight is zero", ErrInvalidScoringInput)
	}

	score := 100.0 * weighted / (totalWeight * RatingMax)
	return score, GradeFor(score), nil
}

// GradeFor maps a score onto the fixed grade policy table. The thresholds
// are inclusive lower bounds and must not change: existing reports were
// produced against them.
func GradeFor(score float64) Grade {
	switch {
	case score >= 95:
		return GradeAPlus
	case score >= 90:
		return GradeA
	case score >= 85:
		return GradeBPlus
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// Aggregate folds many feedback rows into cohort summary metrics.
//
// The section average is the mean of per-(faculty, subject) group means, so
// a heavily-surveyed faculty does not dominate the cohort number. Highest,
// lowest and the grade histogram are taken over per-respondent scores.
// An empty input yields a zero summary, not an error.
func Aggregate(rows []FacultyFeedback) SectionSummaryMetrics {
	summary := SectionSummaryMetrics{
		GradeDistribution: make(map[Grade]int),
	}
	if len(rows) == 0 {
		return summary
	}

	type groupKey struct {
		facultyID int64
		subject   string
	}
	groupSum := make(map[groupKey]float64)
	groupCount := make(map[groupKey]int)

	summary.Highest = rows[0].WeightedScore
	summary.Lowest = rows[0].WeightedScore

	for _, row := range rows {
		key := groupKey{facultyID: row.FacultyID, subject: row.Subject}
		groupSum[key] += row.WeightedScore
		groupCount[key]++

		if row.WeightedScore > summary.Highest {
			summary.Highest = row.WeightedScore
		}
		if row.WeightedScore < summary.Lowest {
			summary.Lowest = row.WeightedScore
		}
		summary.GradeDistribution[GradeFor(row.WeightedScore)]++
	}
	summary.TotalResponses = len(rows)

	var meanSum float64
	for key, sum := range groupSum {
		meanSum += sum / float64(groupCount[key])
	}
	summary.AverageScore = meanSum / float64(len(groupSum))

	return summary
}
