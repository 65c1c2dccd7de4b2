package domain

// Decision is the outcome of fraud screening for one transaction.
type Decision int

// Severity order matters: merging verdicts takes the maximum.
const (
	DecisionAllow Decision = iota
	DecisionFlag
	DecisionReject
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "ALLOW"
	case DecisionFlag:
		return "FLAG"
	case DecisionReject:
		return "REJECT"
	default:
		return "UNKNOWN"
	}
}

// FraudVerdict is the scorer's judgement of a pending transaction.
// Score is in [0, 1]; Reasons lists the triggered rule and model tags.
type FraudVerdict struct {
	Score    float64  `json:"score"`
	Decision Decision `json:"decision"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Merge combines two verdicts: the more severe decision wins, the higher
// score is kept, and reasons are concatenated with duplicates removed.
func (v FraudVerdict) Merge(other FraudVerdict) FraudVerdict {
	out := FraudVerdict{Score: v.Score, Decision: v.Decision}
	if other.Score > out.Score {
		out.Score = other.Score
	}
	if other.Decision > out.Decision {
		out.Decision = other.Decision
	}

	seen := make(map[string]struct{}, len(v.Reasons)+len(other.Reasons))
	for _, r := range append(append([]string{}, v.Reasons...), other.Reasons...) {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out.Reasons = append(out.Reasons, r)
	}
	return out
}
