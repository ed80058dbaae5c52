package util

import (
	"math"
	"testing"
)

func TestNewSummary(t *testing.T) {
	s := NewSummary([]int64{2, 4, 4, 4, 5, 5, 7, 9})

	if s.Count != 8 || s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if math.Abs(s.StdDev-2) > 1e-9 {
		t.Errorf("Expected std deviation 2, got %f", s.StdDev)
	}

	if empty := NewSummary(nil); empty != (Summary{}) {
		t.Errorf("Expected zero summary for no values, got %+v", empty)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.Mean() != 0 || h.Percentile(50) != 0 {
		t.Error("Empty histogram should report zero sizes")
	}

	for i := 0; i < 99; i++ {
		h.Add(10)
	}
	h.Add(5000)

	if h.Count() != 100 {
		t.Errorf("Expected 100 samples, got %d", h.Count())
	}
	if h.Mean() != (99*10+5000)/100 {
		t.Errorf("Unexpected mean %d", h.Mean())
	}

	tests := []struct {
		p        float64
		expected int
	}{
		// middle of [8, 15]
		{0, 11},
		{50, 11},
		{99, 11},
		// middle of [4096, 8191] clamped to the largest sample
		{100, 5000},
		{101, 0},
	}
	for _, tt := range tests {
		if got := h.Percentile(tt.p); got != tt.expected {
			t.Errorf("Percentile(%v): Expected %d, got %d", tt.p, tt.expected, got)
		}
	}
}

func TestSizeHistogramSmallSizes(t *testing.T) {
	h := NewSizeHistogram()
	h.Add(0)
	h.Add(-3)
	h.Add(1)

	if p := h.Percentile(50); p != 0 {
		t.Errorf("Expected median 0, got %d", p)
	}
	if p := h.Percentile(100); p != 1 {
		t.Errorf("Expected p100 of 1, got %d", p)
	}
}
