package ml

import (
	"encoding/json"
	"fmt"
	"math"
)

// Feature indices for the fixed-order behavior vector.
// The order is part of the model contract: the standardizer, the forest and
// the synthetic distribution tables are all keyed by these positions.
const (
	FeatAvgVelocity = iota
	FeatMaxVelocity
	FeatVelocityStd
	FeatAvgAcceleration
	FeatAccelerationStd
	FeatClickFrequency
	FeatAvgClickInterval
	FeatAvgKeystrokeDuration
	FeatKeystrokeRhythmVariance
	FeatSessionDuration
	FeatMovementSmoothness
	FeatDirectionChanges

	NumFeatures
)

// FeatureNames maps feature indices to their wire names.
var FeatureNames = [NumFeatures]string{
	"avg_velocity",
	"max_velocity",
	"velocity_std",
	"avg_acceleration",
	"acceleration_std",
	"click_frequency",
	"avg_click_interval",
	"avg_keystroke_duration",
	"keystroke_rhythm_variance",
	"session_duration",
	"movement_smoothness",
	"direction_changes",
}

// FeatureVector is a fixed-arity behavior feature record. Every dimension is
// finite and non-NaN by construction; degenerate inputs map to zeros, never
// to errors or undefined statistics.
type FeatureVector [NumFeatures]float64

// MarshalJSON encodes the vector as a name -> value object, the shape the
// gateway emits inside verdicts.
func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		m[name] = fv[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the name -> value object form. Unknown names are
// rejected so a typo in a hand-built dataset fails loudly.
func (fv *FeatureVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for name, val := range m {
		idx := -1
		for i, known := range FeatureNames {
			if known == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("unknown feature %q", name)
		}
		fv[idx] = val
	}
	return nil
}

// MouseMovement is a single sampled pointer position with instantaneous
// kinematics computed upstream by the capture script.
type MouseMovement struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Velocity     float64 `json:"velocity"`
	Acceleration float64 `json:"acceleration"`
}

// Click is a single click event.
type Click struct {
	Timestamp float64 `json:"timestamp"`
}

// Keystroke is a single key press with its hold duration in milliseconds.
type Keystroke struct {
	Duration float64 `json:"duration"`
}

// RawSession is the recorded interaction session as delivered by the capture
// layer. Every collection is optional; an empty session is valid input and
// extracts to an all-zero vector (no mouse, no clicks and no typing is
// itself a strong automation signal).
type RawSession struct {
	MouseMovements    []MouseMovement `json:"mouseMovements,omitempty"`
	Clicks            []Click         `json:"clicks,omitempty"`
	Keystrokes        []Keystroke     `json:"keystrokes,omitempty"`
	SessionDurationMs float64         `json:"sessionDurationMs"`
}

// LabeledExample is a feature vector with its ground-truth label, used only
// during training.
type LabeledExample struct {
	Features FeatureVector `json:"features"`
	IsHuman  bool          `json:"is_human"`
}

// ExtractFeatures maps a raw session onto the fixed 12-dimension feature
// vector. It is pure and total: it never fails, and missing data degrades to
// zero-valued features rather than errors.
func ExtractFeatures(session *RawSession) FeatureVector {
	var fv FeatureVector
	if session == nil {
		return fv
	}

	if n := len(session.MouseMovements); n > 0 {
		velocities := make([]float64, n)
		accelerations := make([]float64, n)
		for i, m := range session.MouseMovements {
			velocities[i] = m.Velocity
			accelerations[i] = m.Acceleration
		}

		fv[FeatAvgVelocity] = mean(velocities)
		fv[FeatMaxVelocity] = maxOf(velocities)
		if n > 1 {
			fv[FeatVelocityStd] = math.Sqrt(populationVariance(velocities))
		}
		fv[FeatAvgAcceleration] = mean(accelerations)
		if n > 1 {
			fv[FeatAccelerationStd] = math.Sqrt(populationVariance(accelerations))
		}

		if n > 2 {
			fv[FeatDirectionChanges] = directionChangeRate(session.MouseMovements)
			fv[FeatMovementSmoothness] = populationVariance(velocities)
		}
	}

	if n := len(session.Clicks); n > 1 {
		intervals := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			intervals = append(intervals, session.Clicks[i].Timestamp-session.Clicks[i-1].Timestamp)
		}
		// Frequency couples to the top-level duration; interval deltas stay
		// in raw timestamp units. The asymmetry matches the capture contract.
		if session.SessionDurationMs != 0 {
			fv[FeatClickFrequency] = float64(n) / (session.SessionDurationMs / 1000)
		}
		fv[FeatAvgClickInterval] = mean(intervals)
	}

	if n := len(session.Keystrokes); n > 0 {
		durations := make([]float64, n)
		for i, k := range session.Keystrokes {
			durations[i] = k.Duration
		}
		fv[FeatAvgKeystrokeDuration] = mean(durations)
		if n > 1 {
			fv[FeatKeystrokeRhythmVariance] = populationVariance(durations)
		}
	}

	fv[FeatSessionDuration] = session.SessionDurationMs / 1000

	return fv
}

// directionChangeRate returns the fraction of interior points whose turning
// angle between the incoming and outgoing displacement exceeds 45 degrees.
// A zero-length incoming displacement has no defined angle and is skipped.
func directionChangeRate(movements []MouseMovement) float64 {
	changes := 0
	for i := 1; i < len(movements)-1; i++ {
		prevDX := movements[i].X - movements[i-1].X
		prevDY := movements[i].Y - movements[i-1].Y
		currDX := movements[i+1].X - movements[i].X
		currDY := movements[i+1].Y - movements[i].Y

		if prevDX == 0 && prevDY == 0 {
			continue
		}
		angleDiff := math.Abs(math.Atan2(currDY, currDX) - math.Atan2(prevDY, prevDX))
		if angleDiff > math.Pi/4 {
			changes++
		}
	}
	return float64(changes) / float64(len(movements))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// populationVariance divides by N, not N-1, to match the capture pipeline's
// reference statistics.
func populationVariance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return sum / float64(len(xs))
}
