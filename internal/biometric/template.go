package biometric

import "fmt"

// Average builds a template as the per-dimension arithmetic mean of samples.
// Sums are accumulated in float64 to keep ten or so float32 inputs exact enough.
func Average(samples []Embedding) (Template, error) {
	if len(samples) == 0 {
		return nil, ErrNoValidSamples
	}

	dim := len(samples[0])
	sum := make([]float64, dim)
	for i, s := range samples {
		if len(s) != dim {
			return nil, fmt.Errorf("%w: sample %d has %d values, want %d", ErrDimensionMismatch, i, len(s), dim)
		}
		for d, v := range s {
			sum[d] += float64(v)
		}
	}

	n := float64(len(samples))
	tpl := make(Template, dim)
	for d := range sum {
		tpl[d] = float32(sum[d] / n)
	}
	return tpl, nil
}
