package ml

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateLabelBalance(t *testing.T) {
	gen := NewSyntheticGenerator(1)
	examples := gen.Generate(10000)
	if len(examples) != 10000 {
		t.Fatalf("expected 10000 examples, got %d", len(examples))
	}

	humans := 0
	for _, ex := range examples {
		if ex.IsHuman {
			humans++
		}
	}
	fraction := float64(humans) / float64(len(examples))
	if fraction < 0.67 || fraction > 0.73 {
		t.Fatalf("expected human fraction near 0.7, got %f", fraction)
	}
}

func TestGenerateNonNegative(t *testing.T) {
	gen := NewSyntheticGenerator(2)
	for _, ex := range gen.Generate(5000) {
		for i, v := range ex.Features {
			if v < 0 {
				t.Fatalf("feature %s is negative: %f", FeatureNames[i], v)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := NewSyntheticGenerator(7).Generate(200)
	b := NewSyntheticGenerator(7).Generate(200)
	for i := range a {
		if a[i].IsHuman != b[i].IsHuman || a[i].Features != b[i].Features {
			t.Fatalf("generation diverged at example %d", i)
		}
	}
}

func TestGenerateZeroCount(t *testing.T) {
	if got := NewSyntheticGenerator(1).Generate(0); len(got) != 0 {
		t.Fatalf("expected empty dataset, got %d examples", len(got))
	}
}

// Negative draws are truncated to zero without renormalizing, so the bot
// click features keep their constant-zero branch mass and dimensions with
// negative tails pile up exact zeros.
func TestGenerateTruncationKeepsZeroMass(t *testing.T) {
	gen := NewSyntheticGenerator(3)
	examples := gen.Generate(10000)

	bots := 0
	zeroClickFreq := 0
	zeroSessionDur := 0
	for _, ex := range examples {
		if ex.IsHuman {
			continue
		}
		bots++
		if ex.Features[FeatClickFrequency] == 0 {
			zeroClickFreq++
		}
		if ex.Features[FeatSessionDuration] == 0 {
			zeroSessionDur++
		}
	}
	if bots == 0 {
		t.Fatalf("no bot examples generated")
	}

	// Zero branch weight 0.5 plus a small truncated tail from N(5, 2).
	clickZeroFraction := float64(zeroClickFreq) / float64(bots)
	if clickZeroFraction < 0.4 || clickZeroFraction > 0.6 {
		t.Fatalf("expected ~half of bot click frequencies to be exactly 0, got %f", clickZeroFraction)
	}

	// N(3, 2) has ~6.7% negative mass, all of it truncated onto 0.
	durZeroFraction := float64(zeroSessionDur) / float64(bots)
	if durZeroFraction < 0.02 {
		t.Fatalf("expected truncated session durations at exactly 0, got fraction %f", durZeroFraction)
	}
}

func TestLoadDistributionsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dists.yaml")
	override := `
human:
  avg_velocity:
    - {weight: 1, mean: 100, std: 0}
bot:
  avg_velocity:
    - {weight: 1, mean: 0.5, std: 0}
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	gen := NewSyntheticGenerator(4)
	if err := gen.LoadDistributions(path); err != nil {
		t.Fatalf("load distributions: %v", err)
	}

	for _, ex := range gen.Generate(500) {
		want := 0.5
		if ex.IsHuman {
			want = 100
		}
		if ex.Features[FeatAvgVelocity] != want {
			t.Fatalf("override not applied: human=%v avg_velocity=%f", ex.IsHuman, ex.Features[FeatAvgVelocity])
		}
	}
}

func TestLoadDistributionsRejectsUnknownFeature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	bad := `
human:
  not_a_feature:
    - {weight: 1, mean: 1, std: 1}
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if err := NewSyntheticGenerator(1).LoadDistributions(path); err == nil {
		t.Fatalf("expected unknown feature to be rejected")
	}
}
