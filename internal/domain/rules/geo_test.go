package rules

import (
	"math"
	"testing"
)

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		name string
		km   float64
		want string
	}{
		{name: "meters", km: 0.5, want: "500 м"},
		{name: "meters rounded", km: 0.1234, want: "123 м"},
		{name: "single decimal", km: 3.2, want: "3.2 км"},
		{name: "exactly one km", km: 1.0, want: "1.0 км"},
		{name: "whole km", km: 42, want: "42 км"},
		{name: "rounded km", km: 12.7, want: "13 км"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDistance(tt.km); got != tt.want {
				t.Fatalf("unexpected format: got %q want %q", got, tt.want)
			}
		})
	}
}

func TestHaversineKM(t *testing.T) {
	// Kingisepp to Saint Petersburg, roughly 110 km.
	got := HaversineKM(59.3733, 28.6134, 59.9311, 30.3609)
	if got < 100 || got > 120 {
		t.Fatalf("unexpected distance: %f", got)
	}

	if d := HaversineKM(59.37, 28.61, 59.37, 28.61); d != 0 {
		t.Fatalf("distance to self should be zero, got %f", d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	if err := ValidateCoordinates(59.37, 28.61); err != nil {
		t.Fatalf("valid coordinates rejected: %v", err)
	}
	for _, bad := range [][2]float64{
		{91, 0}, {-91, 0}, {0, 181}, {0, -181}, {math.NaN(), 0}, {0, math.Inf(1)},
	} {
		if err := ValidateCoordinates(bad[0], bad[1]); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestRoundCoordinate(t *testing.T) {
	if got := RoundCoordinate(59.37334999); got != 59.3733 {
		t.Fatalf("unexpected rounding: %f", got)
	}
	if got := RoundCoordinate(28.61345001); got != 28.6135 {
		t.Fatalf("unexpected rounding: %f", got)
	}
}
