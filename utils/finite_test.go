package utils

import (
	"math"
	"testing"
)

func TestFinite(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   bool
	}{
		{"empty", nil, true},
		{"finite", []float64{0, -1.5, 1e300}, true},
		{"nan", []float64{0, math.NaN()}, false},
		{"inf", []float64{math.Inf(-1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Finite(tt.values...); got != tt.want {
				t.Errorf("Finite(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
