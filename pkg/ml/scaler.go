package ml

import "math"

// standardScaler centers each dimension to zero mean and unit variance.
// Parameters are fitted on the training partition only and then applied
// unchanged to test data and live sessions, so no information leaks from
// held-out examples into the transform.
type standardScaler struct {
	mean [NumFeatures]float64
	std  [NumFeatures]float64
}

func fitScaler(samples []FeatureVector) *standardScaler {
	s := &standardScaler{}
	n := float64(len(samples))
	if n == 0 {
		for f := 0; f < NumFeatures; f++ {
			s.std[f] = 1
		}
		return s
	}

	for _, v := range samples {
		for f := 0; f < NumFeatures; f++ {
			s.mean[f] += v[f]
		}
	}
	for f := 0; f < NumFeatures; f++ {
		s.mean[f] /= n
	}

	for _, v := range samples {
		for f := 0; f < NumFeatures; f++ {
			d := v[f] - s.mean[f]
			s.std[f] += d * d
		}
	}
	for f := 0; f < NumFeatures; f++ {
		s.std[f] = math.Sqrt(s.std[f] / n)
		// Constant dimensions pass through unscaled instead of dividing by 0.
		if s.std[f] == 0 {
			s.std[f] = 1
		}
	}
	return s
}

func (s *standardScaler) transform(v FeatureVector) FeatureVector {
	var out FeatureVector
	for f := 0; f < NumFeatures; f++ {
		out[f] = (v[f] - s.mean[f]) / s.std[f]
	}
	return out
}

func (s *standardScaler) transformAll(samples []FeatureVector) []FeatureVector {
	out := make([]FeatureVector, len(samples))
	for i, v := range samples {
		out[i] = s.transform(v)
	}
	return out
}
