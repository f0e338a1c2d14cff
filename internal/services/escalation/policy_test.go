package escalation

import "testing"

func TestDecide(t *testing.T) {
	policy := NewPolicy(3)

	tests := []struct {
		activeCount int
		want        Action
	}{
		{activeCount: 0, want: ActionNone},
		{activeCount: 1, want: ActionNone},
		{activeCount: 2, want: ActionNone},
		{activeCount: 3, want: ActionExclude},
		{activeCount: 4, want: ActionExclude},
		{activeCount: 100, want: ActionExclude},
	}

	for _, tt := range tests {
		got := policy.Decide(tt.activeCount)
		if got != tt.want {
			t.Fatalf("Decide(%d) = %s, want %s", tt.activeCount, got, tt.want)
		}
	}
}

func TestNewPolicyDefaultsThreshold(t *testing.T) {
	policy := NewPolicy(0)
	if policy.Threshold() != DefaultThreshold {
		t.Fatalf("unexpected default threshold: %d", policy.Threshold())
	}
	if policy.Decide(DefaultThreshold-1) != ActionNone {
		t.Fatalf("expected none below default threshold")
	}
	if policy.Decide(DefaultThreshold) != ActionExclude {
		t.Fatalf("expected exclude at default threshold")
	}
}
