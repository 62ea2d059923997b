package annotation

import "testing"

func ann(typ string) Annotation {
	return Annotation{Type: typ, Points: DefaultPoints[typ]}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		anns      []Annotation
		wantScore int
		wantTier  string
	}{
		{name: "no annotations", wantScore: 10, wantTier: TierExcellent},
		{name: "one leve", anns: []Annotation{ann(TypeLeve)}, wantScore: 5, wantTier: TierLow},
		{name: "one grave", anns: []Annotation{ann(TypeGrave)}, wantScore: 0, wantTier: TierCritical},
		{name: "one muy grave", anns: []Annotation{ann(TypeMuyGrave)}, wantScore: 0, wantTier: TierCritical},
		{name: "leve + leve", anns: []Annotation{ann(TypeLeve), ann(TypeLeve)}, wantScore: 0, wantTier: TierCritical},
		{name: "floors at zero", anns: []Annotation{ann(TypeMuyGrave), ann(TypeMuyGrave)}, wantScore: 0, wantTier: TierCritical},
		{name: "custom points fair", anns: []Annotation{{Points: 3}}, wantScore: 7, wantTier: TierFair},
		{name: "custom points critical boundary", anns: []Annotation{{Points: 7}}, wantScore: 3, wantTier: TierCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.anns); got != tt.wantScore {
				t.Errorf("Score() = %v, want %v", got, tt.wantScore)
			}
			if got := Tier(Score(tt.anns)); got != tt.wantTier {
				t.Errorf("Tier() = %v, want %v", got, tt.wantTier)
			}
		})
	}
}

func TestScoreRecomputeIdempotent(t *testing.T) {
	anns := []Annotation{ann(TypeLeve), ann(TypeGrave)}
	if first, second := Score(anns), Score(anns); first != second {
		t.Errorf("Score() not idempotent: %v != %v", first, second)
	}
}

func TestScoreMonotonicNonIncreasing(t *testing.T) {
	history := []Annotation{ann(TypeLeve), ann(TypeLeve), ann(TypeGrave), ann(TypeMuyGrave)}
	prev := Score(nil)
	for i := range history {
		cur := Score(history[:i+1])
		if cur > prev {
			t.Fatalf("score increased from %d to %d after %d annotations", prev, cur, i+1)
		}
		prev = cur
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]Annotation{ann(TypeLeve), ann(TypeLeve)})
	if sum.Annotations != 2 || sum.Deducted != 10 || sum.Score != 0 || sum.Tier != TierCritical {
		t.Errorf("Summarize() = %+v", sum)
	}

	empty := Summarize(nil)
	if empty.Score != MaxScore || empty.Tier != TierExcellent {
		t.Errorf("Summarize(nil) = %+v", empty)
	}
}
