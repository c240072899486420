package otel

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		got := sampler(tt.ratio).Description()
		if !strings.HasPrefix(got, "ParentBased{") || !strings.Contains(got, tt.want) {
			t.Errorf("sampler(%v) = %s, want parent based over %s", tt.ratio, got, tt.want)
		}
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(Config{ServiceName: "test"}, zap.NewNop())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	shutdown()
	if GetTextMapPropagator() == nil {
		t.Fatal("propagator not installed")
	}
}
