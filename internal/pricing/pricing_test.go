package pricing

import "testing"

func TestGetPricing_ExactMatch(t *testing.T) {
	p, ok := GetPricing("deepseek-chat")
	if !ok {
		t.Fatal("GetPricing: deepseek-chat not found")
	}
	if p.InputPerMillion != 0.27 || p.OutputPerMillion != 1.10 {
		t.Errorf("pricing: got %+v", p)
	}
}

func TestGetPricing_PrefixMatch(t *testing.T) {
	p, ok := GetPricing("gemini-2.5-pro-preview-06-05")
	if !ok {
		t.Fatal("GetPricing: prefix match failed")
	}
	if p.InputPerMillion != 1.25 {
		t.Errorf("InputPerMillion: got %v, want 1.25", p.InputPerMillion)
	}
}

func TestGetPricing_Unknown(t *testing.T) {
	if _, ok := GetPricing("llama3.1"); ok {
		t.Error("GetPricing: unexpected match for local model")
	}
}

func TestEstimateCost(t *testing.T) {
	// 1M input + 1M output tokens on gpt-4o-mini: $0.15 + $0.60.
	got := EstimateCost("gpt-4o-mini", 1_000_000, 1_000_000)
	if got != 0.75 {
		t.Errorf("EstimateCost: got %v, want 0.75", got)
	}
}

func TestEstimateCost_UnknownModelIsFree(t *testing.T) {
	if got := EstimateCost("llama3.1", 10_000, 10_000); got != 0 {
		t.Errorf("EstimateCost: got %v, want 0", got)
	}
}
