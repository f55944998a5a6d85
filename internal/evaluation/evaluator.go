// Package evaluation wraps the external AI grading capability behind a total
// interface: every call yields a well-formed outcome, with transport and
// parsing failures converted into a degraded fallback result at this boundary.
package evaluation

import "context"

// Input contains the artefacts needed to grade one task solution
type Input struct {
	TaskTitle          string
	TaskDescription    string
	ProblemDescription string
	ReferenceSolution  string
	CandidateCode      string
	Language           string
	Criteria           map[string]int
}

// Outcome is the normalized result of grading one task solution. The raw
// score is always in [0, 100] and the slices are never nil.
type Outcome struct {
	Score      int      `json:"score"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Evaluator grades a single task solution. Implementations must never fail:
// any internal error is absorbed and surfaced as a fallback outcome so that
// one broken evaluation cannot abort a batched submission.
type Evaluator interface {
	Evaluate(ctx context.Context, input Input) Outcome
}

// Fallback builds the degraded outcome used when an evaluation could not be
// performed. The reason names the technical failure for the caller's benefit;
// the underlying error stays in the logs.
func Fallback(reason string) Outcome {
	return Outcome{
		Score:      0,
		Feedback:   "Automatic evaluation failed: " + reason + ". The submission was not graded.",
		Strengths:  []string{},
		Weaknesses: []string{"evaluation failed"},
	}
}
