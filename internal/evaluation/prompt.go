package evaluation

import (
	"fmt"
	"sort"
	"strings"
)

// systemPrompt pins the grader to a strict, low-variance rubric. The policy
// is deliberately harsh on empty, placeholder or non-compiling submissions to
// suppress false positives from an evaluator that might otherwise reward
// superficially plausible code.
const systemPrompt = `You are a strict automated grader for coding exercises.
Grade the candidate solution against the reference solution and the weighted criteria.

Grading policy:
- Empty submissions, placeholder code, or code that would not compile or parse must score 0. Explain why.
- Logic that diverges from the reference solution's behavior must be penalized heavily.
- Only correct, complete and efficient solutions may receive scores above 90.
- Do not reward code for looking plausible; grade only what it would actually do.

Respond with a single JSON object and nothing else, in exactly this shape:
{"score": <integer 0-100>, "feedback": "<2-4 sentence summary>", "strengths": ["<short statement>", ...], "weaknesses": ["<short statement>", ...]}`

// defaultCriteria is used when a task was authored without explicit weights
var defaultCriteria = map[string]int{
	"correctness":        40,
	"efficiency":         20,
	"code quality":       20,
	"edge case handling": 20,
}

// buildPrompt assembles the user message embedding the candidate code, the
// reference solution, the problem statement and the weighted criteria.
func buildPrompt(input Input) string {
	criteria := input.Criteria
	if len(criteria) == 0 {
		criteria = defaultCriteria
	}

	// Stable ordering keeps the prompt deterministic across calls
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", input.TaskTitle)
	if input.ProblemDescription != "" {
		fmt.Fprintf(&b, "Problem statement:\n%s\n\n", input.ProblemDescription)
	}
	fmt.Fprintf(&b, "Task description:\n%s\n\n", input.TaskDescription)

	b.WriteString("Weighted criteria (weights sum to 100):\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %d\n", name, criteria[name])
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Reference solution:\n```\n%s\n```\n\n", input.ReferenceSolution)
	fmt.Fprintf(&b, "Candidate solution (%s):\n```\n%s\n```\n", input.Language, input.CandidateCode)

	return b.String()
}
