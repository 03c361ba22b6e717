package types

import "testing"

func TestNormalizedClampsRanges(t *testing.T) {
	p := GenerationParams{
		MaxTokens:           -5,
		Temperature:         -1,
		TopP:                1.5,
		TopK:                0,
		RepeatPenalty:       0.2,
		RepeatPenaltyWindow: -3,
	}.Normalized()
	if p.MaxTokens != DefaultParams().MaxTokens {
		t.Fatalf("max tokens not defaulted: %d", p.MaxTokens)
	}
	if p.Temperature != 0 || p.TopP != 1 || p.TopK != 1 {
		t.Fatalf("sampler fields not clamped: %+v", p)
	}
	if p.RepeatPenalty != 1 || p.RepeatPenaltyWindow != 0 {
		t.Fatalf("penalty fields not clamped: %+v", p)
	}
}

func TestNormalizedKeepsValidValues(t *testing.T) {
	in := GenerationParams{MaxTokens: 10, Temperature: 0.5, TopP: 0.8, TopK: 20, RepeatPenalty: 1.2, RepeatPenaltyWindow: 32, Seed: 7}
	if got := in.Normalized(); got != in {
		t.Fatalf("valid params mutated: %+v -> %+v", in, got)
	}
}

func TestGreedy(t *testing.T) {
	if !DeterministicParams().Greedy() {
		t.Fatalf("deterministic preset must be greedy")
	}
	if DefaultParams().Greedy() {
		t.Fatalf("default preset must not be greedy")
	}
}
