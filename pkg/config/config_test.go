package config

import "testing"

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.DenyThreshold != 0.8 || cfg.ChallengeThreshold != 0.5 {
		t.Fatalf("unexpected default thresholds: deny=%v challenge=%v", cfg.DenyThreshold, cfg.ChallengeThreshold)
	}
	if cfg.TrainSamples != 2000 || cfg.ForestTrees != 100 || cfg.ForestDepth != 10 {
		t.Fatalf("unexpected training defaults: %+v", cfg)
	}
	if !cfg.AutoTrain {
		t.Fatalf("expected auto-train on by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAMPART_DENY_THRESHOLD", "0.9")
	t.Setenv("RAMPART_TRAIN_SAMPLES", "500")
	t.Setenv("RAMPART_AUTO_TRAIN", "false")
	t.Setenv("RAMPART_FOREST_TREES", "0") // below minimum, clamped up

	cfg := NewDefaultConfig()
	if cfg.DenyThreshold != 0.9 {
		t.Fatalf("deny threshold override not applied: %v", cfg.DenyThreshold)
	}
	if cfg.TrainSamples != 500 {
		t.Fatalf("train samples override not applied: %v", cfg.TrainSamples)
	}
	if cfg.AutoTrain {
		t.Fatalf("auto-train override not applied")
	}
	if cfg.ForestTrees != 1 {
		t.Fatalf("expected forest trees clamped to 1, got %d", cfg.ForestTrees)
	}
}

func TestValidateRejectsIncoherentThresholds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ChallengeThreshold = 0.95 // above deny
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected challenge > deny to be rejected")
	}

	cfg = NewDefaultConfig()
	cfg.TestFraction = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected out-of-range test fraction to be rejected")
	}
}
