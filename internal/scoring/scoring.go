// Package scoring converts raw evaluation scores into task point budgets and
// aggregates per-task results into submission totals. It is pure computation
// with no I/O.
package scoring

import (
	"math"

	"github.com/codegrade/backend/internal/domain"
)

// Scale converts a raw 0-100 score into the task's point units, rounded to
// two decimal places.
func Scale(rawScore, taskPoints int) float64 {
	return round2(float64(rawScore) / 100.0 * float64(taskPoints))
}

// Passed reports whether a raw score meets the completion threshold
func Passed(rawScore int) bool {
	return rawScore >= domain.PassThreshold
}

// Total sums the scaled scores over all evaluations
func Total(evaluations map[string]domain.EvaluationResult) float64 {
	total := 0.0
	for _, e := range evaluations {
		total += e.ScaledScore
	}
	return round2(total)
}

// CompletedCount counts the evaluations that met the completion threshold
func CompletedCount(evaluations map[string]domain.EvaluationResult) int {
	count := 0
	for _, e := range evaluations {
		if e.Passed {
			count++
		}
	}
	return count
}

// ClampScore bounds a raw score to the 0-100 range
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
