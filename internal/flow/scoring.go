package flow

// Fields is the scoring input: the session's captured contact data plus the
// current funnel stage.
type Fields struct {
	Name     string
	Phone    string
	Email    string
	Interest string
	Segment  string
	Stage    int
}

// Scoring weights. The raw maximum is 110; no ceiling is applied, and the
// only consumer of an absolute threshold is lead priority (>= 50 is high).
const (
	scoreName      = 15
	scorePhone     = 30
	scoreEmail     = 20
	scoreInterest  = 20
	scoreSegment   = 10
	scoreLateStage = 15

	// HighPriorityThreshold is the score at or above which a materialized
	// lead is created with high priority.
	HighPriorityThreshold = 50
)

// CalculateQualificationScore recomputes the session score from scratch.
// It is a pure additive function of which fields are filled, so repeated
// computation over the same fields is idempotent and filling a field never
// lowers the result.
func CalculateQualificationScore(f Fields) int {
	score := 0
	if f.Name != "" {
		score += scoreName
	}
	if f.Phone != "" {
		score += scorePhone
	}
	if f.Email != "" {
		score += scoreEmail
	}
	if f.Interest != "" {
		score += scoreInterest
	}
	if f.Segment != "" {
		score += scoreSegment
	}
	if f.Stage >= 5 {
		score += scoreLateStage
	}
	return score
}
