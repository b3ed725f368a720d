// Package scoring derives composite scores, class averages, rankings and
// trends from grade records already loaded in memory. Every function is pure:
// inputs are never mutated and no state is kept between calls.
package scoring

import "math"

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round2Ptr rounds the value behind p, keeping nil as nil.
func Round2Ptr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := Round2(*p)
	return &v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
