package cache

import (
	"context"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		division string
		parts    []string
		want     string
	}{
		{"uppercases division", "fp", []string{"info", "2024-2025"}, "budget:FP:info:2024-2025"},
		{"trims division", " hc ", []string{"info"}, "budget:HC:info"},
		{"no parts", "FP", nil, "budget:FP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.division, tt.parts...); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c := New(nil, 0)
	ctx := context.Background()
	var out map[string]string
	if c.GetJSON(ctx, "budget:FP:info", &out) {
		t.Error("disabled cache should always miss")
	}
	// Writes and invalidation must not panic without a client.
	c.SetJSON(ctx, "budget:FP:info", map[string]string{"a": "b"})
	c.InvalidateDivision(ctx, "FP")
	c.Close()
}
