package annotation

// MaxScore is the conduct credit every student starts with.
const MaxScore = 10

// Conduct tiers, by fixed thresholds on the conduct score.
const (
	TierCritical  = "Critical"
	TierLow       = "Low"
	TierFair      = "Fair"
	TierExcellent = "Excellent"
)

// ConductSummary is the derived conduct state of one student. It is
// recomputed from the annotation history on every read, never persisted.
type ConductSummary struct {
	Annotations int    `json:"annotations"`
	Deducted    int    `json:"deducted"`
	Score       int    `json:"conduct"`
	Tier        string `json:"tier"`
}

// Deducted sums the point deductions across an annotation history.
func Deducted(anns []Annotation) int {
	var total int
	for _, a := range anns {
		total += a.Points
	}
	return total
}

// ScoreFromDeducted maps a total deduction to the 0..MaxScore conduct score.
func ScoreFromDeducted(deducted int) int {
	if deducted >= MaxScore {
		return 0
	}
	return MaxScore - deducted
}

// Score computes the conduct score for an annotation history. An empty
// history yields MaxScore.
func Score(anns []Annotation) int {
	return ScoreFromDeducted(Deducted(anns))
}

// Tier classifies a conduct score.
func Tier(score int) string {
	switch {
	case score <= 3:
		return TierCritical
	case score <= 5:
		return TierLow
	case score <= 7:
		return TierFair
	default:
		return TierExcellent
	}
}

// Summarize derives the full conduct state from an annotation history.
func Summarize(anns []Annotation) ConductSummary {
	deducted := Deducted(anns)
	score := ScoreFromDeducted(deducted)
	return ConductSummary{
		Annotations: len(anns),
		Deducted:    deducted,
		Score:       score,
		Tier:        Tier(score),
	}
}
