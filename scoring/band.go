package scoring

import "math"

// RoundToBand clamps a raw model score into the 0.0-9.0 band range and
// rounds it to the nearest 0.5 increment, ties rounding up (6.25 -> 6.5).
func RoundToBand(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		x = 0
	}
	if x > 9 {
		x = 9
	}
	return math.Floor(x*2+0.5) / 2
}

// OverallBand is the mean of the given bands rounded to the nearest 0.5.
// Returns 0 for an empty input.
func OverallBand(bands ...float64) float64 {
	if len(bands) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bands {
		sum += b
	}
	return RoundToBand(sum / float64(len(bands)))
}
