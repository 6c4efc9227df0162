package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(32.7157, -117.1611, 32.7157, -117.1611)
	if d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestHaversine_SanDiego_LosAngeles(t *testing.T) {
	// Downtown San Diego to downtown LA: ~111.5 miles great-circle
	d := Haversine(32.7157, -117.1611, 34.0522, -118.2437)
	if !almost(d, 111.5, 2) {
		t.Fatalf("want ~111.5mi, got %.2fmi", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	points := [][4]float64{
		{32.715, -117.161, 32.817, -116.936},
		{0, 0, 51.5074, -0.1278},
		{-33.8688, 151.2093, 40.7128, -74.0060},
	}
	for _, p := range points {
		ab := Haversine(p[0], p[1], p[2], p[3])
		ba := Haversine(p[2], p[3], p[0], p[1])
		if !almost(ab, ba, 1e-9) {
			t.Errorf("asymmetric: %.12f vs %.12f", ab, ba)
		}
		if ab < 0 {
			t.Errorf("negative distance %.2f", ab)
		}
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := Haversine(0, 0, 0, 180)
	expected := math.Pi * EarthRadiusMiles
	if !almost(d, expected, 0.01) {
		t.Fatalf("want ~%.1fmi, got %.1fmi", expected, d)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		valid    bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{32.715, -117.161, true},
		{91, 0, false},
		{0, 181, false},
		{-91, 0, false},
		{0, -181, false},
	}
	for _, tt := range tests {
		if got := ValidateCoordinates(tt.lat, tt.lon); got != tt.valid {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", tt.lat, tt.lon, got, tt.valid)
		}
	}
}

func TestRoundMiles(t *testing.T) {
	tests := []struct {
		in, out float64
	}{
		{0, 0},
		{0.24, 0.2},
		{0.25, 0.3},
		{1.9999, 2.0},
		{12.449, 12.4},
	}
	for _, tt := range tests {
		if got := RoundMiles(tt.in); got != tt.out {
			t.Errorf("RoundMiles(%f) = %f, want %f", tt.in, got, tt.out)
		}
	}
}
