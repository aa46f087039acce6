package ml

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ClassifierConfig bounds the training pipeline. Zero values are filled from
// DefaultClassifierConfig.
type ClassifierConfig struct {
	// TrainSamples is the synthetic dataset size used when no real dataset
	// is supplied (default: 2000).
	TrainSamples int

	// TestFraction is the held-out share of the dataset (default: 0.2).
	TestFraction float64

	// Seed drives dataset generation, shuffling and bootstrap sampling so a
	// fit is reproducible. Not part of the public contract.
	Seed int64

	// Forest bounds the ensemble fit.
	Forest ForestConfig

	// EnableNeighbors builds a nearest-neighbor explain index over the
	// scaled training vectors after each successful fit.
	EnableNeighbors bool
}

// DefaultClassifierConfig mirrors the historical production pipeline.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		TrainSamples: 2000,
		TestFraction: 0.2,
		Seed:         42,
		Forest:       DefaultForestConfig(),
	}
}

// TrainingReport summarizes one completed fit.
type TrainingReport struct {
	TrainAccuracy     float64            `json:"train_accuracy"`
	TestAccuracy      float64            `json:"test_accuracy"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	Samples           int                `json:"samples"`
	Synthetic         bool               `json:"synthetic"`
	DurationMs        float64            `json:"duration_ms"`
}

// Verdict is the classification result for a single session.
type Verdict struct {
	ID               string        `json:"id"`
	IsHuman          bool          `json:"is_human"`
	HumanProbability float64       `json:"human_probability"`
	BotProbability   float64       `json:"bot_probability"`
	Confidence       float64       `json:"confidence"`
	RiskScore        float64       `json:"risk_score"`
	Features         FeatureVector `json:"features"`
	Timestamp        time.Time     `json:"prediction_timestamp"`
}

// StatusReport is the read-only model status accessor payload.
type StatusReport struct {
	Trained           bool               `json:"trained"`
	FeatureNames      []string           `json:"features"`
	FeatureImportance map[string]float64 `json:"feature_importance,omitempty"`
	TrainedAt         *time.Time         `json:"trained_at,omitempty"`
}

// modelState is the complete fitted model. Train builds a fresh state and
// installs it with a single pointer swap, so Predict never observes a
// partially updated scaler/forest pair.
type modelState struct {
	scaler     *standardScaler
	forest     *randomForest
	neighbors  *NeighborIndex
	importance map[string]float64
	trainedAt  time.Time
}

// BehaviorClassifier owns the model lifecycle: Untrained until the first
// successful Train, Trained afterwards, never back. Safe for concurrent use;
// Train calls serialize, Predict reads the current state lock-free.
type BehaviorClassifier struct {
	cfg ClassifierConfig
	gen *SyntheticGenerator

	trainMu sync.Mutex
	state   atomic.Pointer[modelState]
}

// NewBehaviorClassifier creates an untrained classifier.
func NewBehaviorClassifier(cfg ClassifierConfig) *BehaviorClassifier {
	def := DefaultClassifierConfig()
	if cfg.TrainSamples <= 0 {
		cfg.TrainSamples = def.TrainSamples
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.Forest.Trees <= 0 {
		cfg.Forest = def.Forest
		cfg.Forest.Seed = cfg.Seed
	}

	return &BehaviorClassifier{
		cfg: cfg,
		gen: NewSyntheticGenerator(cfg.Seed),
	}
}

// Generator exposes the synthetic generator so callers can apply
// distribution overrides before the first fit.
func (bc *BehaviorClassifier) Generator() *SyntheticGenerator {
	return bc.gen
}

// Train fits a fresh model on the dataset, or on synthetic examples when the
// dataset is nil/empty. On success the whole model state is replaced
// atomically; on failure the previous state is untouched.
func (bc *BehaviorClassifier) Train(dataset []LabeledExample) (*TrainingReport, error) {
	bc.trainMu.Lock()
	defer bc.trainMu.Unlock()

	start := time.Now()

	synthetic := len(dataset) == 0
	if synthetic {
		dataset = bc.gen.Generate(bc.cfg.TrainSamples)
	}
	if len(dataset) < 2 {
		return nil, fmt.Errorf("%w: dataset has %d examples", ErrTrainingFailure, len(dataset))
	}

	// Seeded shuffle, then 80/20 split.
	rng := rand.New(rand.NewSource(bc.cfg.Seed))
	shuffled := make([]LabeledExample, len(dataset))
	copy(shuffled, dataset)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testN := int(float64(len(shuffled)) * bc.cfg.TestFraction)
	trainSet := shuffled[testN:]
	testSet := shuffled[:testN]
	if len(trainSet) == 0 {
		return nil, fmt.Errorf("%w: empty training partition", ErrTrainingFailure)
	}

	trainX, trainY := splitExamples(trainSet)
	testX, testY := splitExamples(testSet)

	scaler := fitScaler(trainX)
	trainScaled := scaler.transformAll(trainX)
	testScaled := scaler.transformAll(testX)

	forest, err := fitForest(trainScaled, trainY, bc.cfg.Forest)
	if err != nil {
		return nil, err
	}

	importance := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		importance[name] = forest.importance[i]
	}

	state := &modelState{
		scaler:     scaler,
		forest:     forest,
		importance: importance,
		trainedAt:  time.Now().UTC(),
	}
	if bc.cfg.EnableNeighbors {
		neighbors, err := NewNeighborIndex(trainScaled, trainY)
		if err != nil {
			return nil, fmt.Errorf("%w: neighbor index: %v", ErrTrainingFailure, err)
		}
		state.neighbors = neighbors
	}

	report := &TrainingReport{
		TrainAccuracy:     forest.accuracy(trainScaled, trainY),
		TestAccuracy:      forest.accuracy(testScaled, testY),
		FeatureImportance: importance,
		Samples:           len(dataset),
		Synthetic:         synthetic,
		DurationMs:        float64(time.Since(start).Microseconds()) / 1000,
	}

	bc.state.Store(state)
	return report, nil
}

// Predict classifies a raw session with the current model.
func (bc *BehaviorClassifier) Predict(session *RawSession) (*Verdict, error) {
	state := bc.state.Load()
	if state == nil {
		return nil, ErrModelNotTrained
	}
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrMalformedInput)
	}

	features := ExtractFeatures(session)
	scaled := state.scaler.transform(features)
	humanProb := state.forest.predictProba(scaled)
	botProb := 1 - humanProb

	confidence := humanProb
	if botProb > confidence {
		confidence = botProb
	}

	return &Verdict{
		ID:               uuid.NewString(),
		IsHuman:          humanProb >= 0.5,
		HumanProbability: humanProb,
		BotProbability:   botProb,
		Confidence:       confidence,
		RiskScore:        1 - humanProb,
		Features:         features,
		Timestamp:        time.Now().UTC(),
	}, nil
}

// Explain returns the k most similar labeled training examples for a session,
// or nil when the neighbor index is disabled.
func (bc *BehaviorClassifier) Explain(session *RawSession, k int) ([]Neighbor, error) {
	state := bc.state.Load()
	if state == nil {
		return nil, ErrModelNotTrained
	}
	if session == nil {
		return nil, fmt.Errorf("%w: nil session", ErrMalformedInput)
	}
	if state.neighbors == nil {
		return nil, nil
	}

	scaled := state.scaler.transform(ExtractFeatures(session))
	return state.neighbors.Query(scaled, k)
}

// Status reports the model state without mutating it.
func (bc *BehaviorClassifier) Status() StatusReport {
	report := StatusReport{FeatureNames: FeatureNames[:]}

	state := bc.state.Load()
	if state == nil {
		return report
	}

	report.Trained = true
	report.FeatureImportance = state.importance
	trainedAt := state.trainedAt
	report.TrainedAt = &trainedAt
	return report
}

func splitExamples(examples []LabeledExample) ([]FeatureVector, []bool) {
	xs := make([]FeatureVector, len(examples))
	ys := make([]bool, len(examples))
	for i, ex := range examples {
		xs[i] = ex.Features
		ys[i] = ex.IsHuman
	}
	return xs, ys
}
