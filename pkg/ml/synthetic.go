package ml

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// Component is one branch of a per-dimension generative mixture. A Zero
// component emits a constant 0 (the "frozen" automation archetype for click
// features); otherwise the branch is a Gaussian draw.
type Component struct {
	Weight float64 `yaml:"weight"`
	Mean   float64 `yaml:"mean"`
	Std    float64 `yaml:"std"`
	Zero   bool    `yaml:"zero,omitempty"`
}

// Mixture is the generative model for a single feature dimension. Unimodal
// dimensions carry one component; bimodal bot dimensions carry two with
// equal weight, representing the frozen and superhuman automation archetypes.
type Mixture struct {
	Components []Component `yaml:"components"`
}

func gaussian(mean, std float64) Mixture {
	return Mixture{Components: []Component{{Weight: 1, Mean: mean, Std: std}}}
}

func bimodal(lowMean, lowStd, highMean, highStd float64) Mixture {
	return Mixture{Components: []Component{
		{Weight: 0.5, Mean: lowMean, Std: lowStd},
		{Weight: 0.5, Mean: highMean, Std: highStd},
	}}
}

func zeroOr(mean, std float64) Mixture {
	return Mixture{Components: []Component{
		{Weight: 0.5, Zero: true},
		{Weight: 0.5, Mean: mean, Std: std},
	}}
}

func (m Mixture) sample(rng *rand.Rand) float64 {
	r := rng.Float64()
	acc := 0.0
	comp := m.Components[len(m.Components)-1]
	for _, c := range m.Components {
		acc += c.Weight
		if r < acc {
			comp = c
			break
		}
	}
	if comp.Zero {
		return 0
	}
	return comp.Mean + comp.Std*rng.NormFloat64()
}

// DistributionSet holds the per-dimension generative models for one class.
type DistributionSet [NumFeatures]Mixture

// defaultHumanDistributions encode organic interaction: moderate velocities,
// irregular click cadence, wide keystroke rhythm variance.
func defaultHumanDistributions() DistributionSet {
	var d DistributionSet
	d[FeatAvgVelocity] = gaussian(1.5, 0.8)
	d[FeatMaxVelocity] = gaussian(4.0, 1.5)
	d[FeatVelocityStd] = gaussian(0.8, 0.3)
	d[FeatAvgAcceleration] = gaussian(0.3, 0.2)
	d[FeatAccelerationStd] = gaussian(0.4, 0.2)
	d[FeatClickFrequency] = gaussian(0.8, 0.4)
	d[FeatAvgClickInterval] = gaussian(2000, 1000)
	d[FeatAvgKeystrokeDuration] = gaussian(120, 40)
	d[FeatKeystrokeRhythmVariance] = gaussian(800, 400)
	d[FeatSessionDuration] = gaussian(30, 15)
	d[FeatMovementSmoothness] = gaussian(0.6, 0.3)
	d[FeatDirectionChanges] = gaussian(0.3, 0.1)
	return d
}

// defaultBotDistributions encode mechanical regularity. Several dimensions
// are bimodal: either near-zero "frozen" automation (headless drivers that
// teleport the cursor) or extreme "superhuman" automation (replay scripts).
func defaultBotDistributions() DistributionSet {
	var d DistributionSet
	d[FeatAvgVelocity] = bimodal(0.1, 0.05, 8.0, 2.0)
	d[FeatMaxVelocity] = bimodal(0.2, 0.1, 15.0, 5.0)
	d[FeatVelocityStd] = gaussian(0.1, 0.05)
	d[FeatAvgAcceleration] = bimodal(0.01, 0.005, 2.0, 0.5)
	d[FeatAccelerationStd] = gaussian(0.05, 0.02)
	d[FeatClickFrequency] = zeroOr(5.0, 2.0)
	d[FeatAvgClickInterval] = zeroOr(100, 50)
	d[FeatAvgKeystrokeDuration] = bimodal(20, 5, 500, 100)
	d[FeatKeystrokeRhythmVariance] = gaussian(50, 25)
	d[FeatSessionDuration] = gaussian(3, 2)
	d[FeatMovementSmoothness] = gaussian(0.1, 0.05)
	d[FeatDirectionChanges] = gaussian(0.1, 0.05)
	return d
}

// SyntheticGenerator produces labeled feature vectors from the two class
// distributions. It is used whenever the caller supplies no real dataset.
// Not safe for concurrent use; the classifier serializes access under its
// training lock.
type SyntheticGenerator struct {
	rng        *rand.Rand
	human      DistributionSet
	bot        DistributionSet
	humanShare float64
}

// NewSyntheticGenerator creates a generator with the built-in distribution
// tables. The same seed always yields the same dataset.
func NewSyntheticGenerator(seed int64) *SyntheticGenerator {
	return &SyntheticGenerator{
		rng:        rand.New(rand.NewSource(seed)),
		human:      defaultHumanDistributions(),
		bot:        defaultBotDistributions(),
		humanShare: 0.7,
	}
}

// Generate returns n i.i.d. labeled examples, each independently human with
// probability 0.7. Negative draws are truncated to 0: the measured features
// are physically non-negative. Truncation deliberately skips renormalizing
// the mixtures, so dimensions with substantial negative mass (the bot
// low-velocity branch) keep their historical upward skew.
func (g *SyntheticGenerator) Generate(n int) []LabeledExample {
	examples := make([]LabeledExample, 0, n)
	for i := 0; i < n; i++ {
		isHuman := g.rng.Float64() < g.humanShare
		dists := &g.bot
		if isHuman {
			dists = &g.human
		}

		var fv FeatureVector
		for f := 0; f < NumFeatures; f++ {
			v := dists[f].sample(g.rng)
			if v < 0 {
				v = 0
			}
			fv[f] = v
		}
		examples = append(examples, LabeledExample{Features: fv, IsHuman: isHuman})
	}
	return examples
}

// distributionFile is the YAML override format: per-class maps of feature
// name to mixture components. Omitted features keep their defaults.
type distributionFile struct {
	Human map[string][]Component `yaml:"human"`
	Bot   map[string][]Component `yaml:"bot"`
}

// LoadDistributions applies mixture overrides from a YAML file, so the
// generation policy can be tuned and reviewed without a rebuild.
func (g *SyntheticGenerator) LoadDistributions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read distributions: %w", err)
	}

	var file distributionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse distributions: %w", err)
	}

	if err := applyOverrides(&g.human, file.Human); err != nil {
		return fmt.Errorf("human distributions: %w", err)
	}
	if err := applyOverrides(&g.bot, file.Bot); err != nil {
		return fmt.Errorf("bot distributions: %w", err)
	}
	return nil
}

func applyOverrides(set *DistributionSet, overrides map[string][]Component) error {
	for name, components := range overrides {
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
		if len(components) == 0 {
			return fmt.Errorf("feature %q has no components", name)
		}
		total := 0.0
		for _, c := range components {
			if c.Weight <= 0 {
				return fmt.Errorf("feature %q has non-positive component weight", name)
			}
			total += c.Weight
		}
		// Normalize weights so override files can use any positive scale.
		normalized := make([]Component, len(components))
		for i, c := range components {
			c.Weight /= total
			normalized[i] = c
		}
		set[idx] = Mixture{Components: normalized}
	}
	return nil
}
