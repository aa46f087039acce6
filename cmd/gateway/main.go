package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/TryMightyAI/rampart/pkg/config"
	"github.com/TryMightyAI/rampart/pkg/ml"
	"github.com/TryMightyAI/rampart/pkg/store"
	"github.com/TryMightyAI/rampart/pkg/telemetry"
)

const Version = "0.1.0"

// Analyzer wires the behavior classifier to the optional stores.
// The stores are optional and the gateway degrades gracefully without them.
type Analyzer struct {
	classifier *ml.BehaviorClassifier
	cache      *store.VerdictCache
	audit      *store.AuditStore
	config     *config.Config
}

func NewAnalyzer(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	classifier := ml.NewBehaviorClassifier(ml.ClassifierConfig{
		TrainSamples: cfg.TrainSamples,
		TestFraction: cfg.TestFraction,
		Seed:         cfg.Seed,
		Forest: ml.ForestConfig{
			Trees:    cfg.ForestTrees,
			MaxDepth: cfg.ForestDepth,
			MinLeaf:  1,
			Seed:     cfg.Seed,
		},
		EnableNeighbors: cfg.EnableNeighbors,
	})

	if cfg.DistributionsPath != "" {
		if err := classifier.Generator().LoadDistributions(cfg.DistributionsPath); err != nil {
			log.Printf("[WARN] Failed to load distribution overrides: %v", err)
		} else {
			log.Printf("✓ Distribution overrides loaded (%s)", cfg.DistributionsPath)
		}
	}

	a := &Analyzer{classifier: classifier, config: cfg}

	// Verdict cache - optional
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		cache, err := store.NewVerdictCache(ctx, cfg.RedisURL, time.Hour)
		cancel()
		if err != nil {
			log.Printf("○ Verdict cache disabled (redis init failed: %v)", err)
		} else {
			a.cache = cache
			log.Println("✓ Verdict cache enabled (redis)")
		}
	} else {
		log.Println("○ Verdict cache disabled (no RAMPART_REDIS_URL)")
	}

	// Audit trail - optional
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		audit, err := store.NewAuditStore(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Printf("○ Audit trail disabled (postgres init failed: %v)", err)
		} else {
			a.audit = audit
			log.Println("✓ Audit trail enabled (postgres)")
		}
	} else {
		log.Println("○ Audit trail disabled (no RAMPART_DATABASE_URL)")
	}

	return a
}

// Score classifies a session and attaches the operational decision. Verdicts
// are fanned out to the cache and audit trail on a best-effort basis.
func (a *Analyzer) Score(ctx context.Context, session *ml.RawSession) (*ml.Verdict, string, error) {
	verdict, err := a.classifier.Predict(session)
	if err != nil {
		return nil, "", err
	}

	decision := "allow"
	if verdict.RiskScore >= a.config.DenyThreshold {
		decision = "deny"
	} else if verdict.RiskScore >= a.config.ChallengeThreshold {
		decision = "challenge"
	}

	if a.cache != nil {
		if err := a.cache.Put(ctx, verdict); err != nil {
			log.Printf("[WARN] Verdict cache write failed: %v", err)
		}
	}
	if a.audit != nil {
		if err := a.audit.Insert(ctx, verdict); err != nil {
			log.Printf("[WARN] Audit write failed: %v", err)
		}
	}

	telemetry.GlobalClient.Track("verdict_issued", map[string]interface{}{
		"decision": decision,
	})

	return verdict, decision, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		port := "5001"
		if len(os.Args) > 2 {
			port = os.Args[2]
		}
		runHTTPServer(port)
	case "score":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rampart score <session.json | ->")
			os.Exit(1)
		}
		runCLIScore(os.Args[2])
	case "demo":
		runDemo()
	case "version":
		fmt.Printf("Rampart v%s\n", Version)
		fmt.Println("Behavioral Bot Detection - Open Source Edition")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Rampart v%s - Behavioral Bot Detection\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  rampart serve [port]          Start HTTP server (default: 5001)")
	fmt.Println("  rampart score <file | ->      Score a recorded session JSON file (or stdin)")
	fmt.Println("  rampart demo                  Train and score a generated human and bot session")
	fmt.Println("  rampart version               Show version")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  rampart serve 8080")
	fmt.Println("  rampart score session.json")
	fmt.Println("  cat session.json | rampart score -")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  RAMPART_DENY_THRESHOLD       Risk score that denies a session (default: 0.8)")
	fmt.Println("  RAMPART_CHALLENGE_THRESHOLD  Risk score that challenges a session (default: 0.5)")
	fmt.Println("  RAMPART_TRAIN_SAMPLES        Synthetic training set size (default: 2000)")
	fmt.Println("  RAMPART_REDIS_URL            Enable the verdict cache")
	fmt.Println("  RAMPART_DATABASE_URL         Enable the verdict audit trail")
}

// ============================================================================
// HTTP Server Mode
// ============================================================================

func runHTTPServer(port string) {
	cfg := config.NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	analyzer := NewAnalyzer(cfg)

	if cfg.AutoTrain {
		log.Println("Training behavior model on startup...")
		report, err := analyzer.classifier.Train(nil)
		if err != nil {
			log.Fatalf("Startup training failed: %v", err)
		}
		log.Printf("✓ Model trained (train=%.3f test=%.3f, %d samples)",
			report.TrainAccuracy, report.TestAccuracy, report.Samples)
	} else {
		log.Println("○ Auto-train disabled, POST /train before predicting")
	}

	app := fiber.New(fiber.Config{
		AppName: "Rampart",
	})

	// Health check
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"service":       "Rampart Behavior Analysis",
			"version":       Version,
			"model_trained": analyzer.classifier.Status().Trained,
			"timestamp":     time.Now().UTC(),
		})
	})

	// Train (or retrain) the model. An empty body or empty dataset trains
	// on synthetic examples.
	app.Post("/train", func(c fiber.Ctx) error {
		var req struct {
			Dataset []ml.LabeledExample `json:"dataset"`
		}
		if len(c.Body()) > 0 {
			if err := c.Bind().Body(&req); err != nil {
				return c.Status(400).JSON(fiber.Map{"success": false, "error": "invalid request body"})
			}
		}

		report, err := analyzer.classifier.Train(req.Dataset)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"success": false, "error": err.Error()})
		}

		telemetry.GlobalClient.Track("model_trained", map[string]interface{}{
			"samples":   report.Samples,
			"synthetic": report.Synthetic,
		})
		return c.JSON(fiber.Map{"success": true, "results": report, "timestamp": time.Now().UTC()})
	})

	// Predict human vs. bot for a recorded session.
	app.Post("/predict", func(c fiber.Ctx) error {
		var req struct {
			BehaviorData *ml.RawSession `json:"behaviorData"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "invalid request body"})
		}
		if req.BehaviorData == nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "no behavior data provided"})
		}

		verdict, decision, err := analyzer.Score(c.Context(), req.BehaviorData)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "prediction": verdict, "decision": decision})
	})

	// Explain a session by its nearest labeled training examples.
	app.Post("/explain", func(c fiber.Ctx) error {
		var req struct {
			BehaviorData *ml.RawSession `json:"behaviorData"`
			K            int            `json:"k"`
		}
		if err := c.Bind().Body(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "invalid request body"})
		}
		if req.BehaviorData == nil {
			return c.Status(400).JSON(fiber.Map{"success": false, "error": "no behavior data provided"})
		}

		neighbors, err := analyzer.classifier.Explain(req.BehaviorData, req.K)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		if neighbors == nil {
			return c.Status(404).JSON(fiber.Map{
				"success": false,
				"error":   "neighbor index disabled, set RAMPART_ENABLE_NEIGHBORS=true",
			})
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"neighbors":      neighbors,
			"human_fraction": ml.HumanFraction(neighbors),
		})
	})

	// Model status and feature importance.
	app.Get("/model/info", func(c fiber.Ctx) error {
		return c.JSON(analyzer.classifier.Status())
	})

	// Recent verdict lookup, backed by the redis cache.
	app.Get("/verdicts/:id", func(c fiber.Ctx) error {
		if analyzer.cache == nil {
			return c.Status(503).JSON(fiber.Map{"success": false, "error": "verdict cache not configured"})
		}
		verdict, err := analyzer.cache.Get(c.Context(), c.Params("id"))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		if verdict == nil {
			return c.Status(404).JSON(fiber.Map{"success": false, "error": "verdict not found"})
		}
		return c.JSON(fiber.Map{"success": true, "verdict": verdict})
	})

	app.Get("/verdicts", func(c fiber.Ctx) error {
		if analyzer.cache == nil {
			return c.Status(503).JSON(fiber.Map{"success": false, "error": "verdict cache not configured"})
		}
		ids, err := analyzer.cache.RecentIDs(c.Context(), fiber.Query[int](c, "limit", 50))
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"success": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "ids": ids})
	})

	log.Printf("Rampart HTTP server starting on :%s", port)
	log.Printf("Endpoints:")
	log.Printf("  GET  /health        - Health check")
	log.Printf("  POST /train         - Train or retrain the model")
	log.Printf("  POST /predict       - Classify a recorded session")
	log.Printf("  POST /explain       - Nearest labeled examples for a session")
	log.Printf("  GET  /model/info    - Model status and feature importance")
	log.Printf("  GET  /verdicts/:id  - Recent verdict lookup (redis)")

	if err := app.Listen(":" + port); err != nil {
		log.Fatal(err)
	}
}

// statusForError maps the core's error kinds to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ml.ErrModelNotTrained):
		return 409
	case errors.Is(err, ml.ErrMalformedInput):
		return 400
	case errors.Is(err, ml.ErrTrainingFailure):
		return 500
	default:
		return 500
	}
}

// ============================================================================
// CLI Modes
// ============================================================================

func runCLIScore(path string) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		log.Fatalf("Failed to read session: %v", err)
	}

	var session ml.RawSession
	if err := json.Unmarshal(data, &session); err != nil {
		log.Fatalf("Failed to parse session JSON: %v", err)
	}

	analyzer := NewAnalyzer(config.NewDefaultConfig())
	if _, err := analyzer.classifier.Train(nil); err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	verdict, decision, err := analyzer.Score(context.Background(), &session)
	if err != nil {
		log.Fatalf("Prediction failed: %v", err)
	}

	output, _ := json.MarshalIndent(fiber.Map{"prediction": verdict, "decision": decision}, "", "  ")
	fmt.Println(string(output))
}

func runDemo() {
	analyzer := NewAnalyzer(config.NewDefaultConfig())
	report, err := analyzer.classifier.Train(nil)
	if err != nil {
		log.Fatalf("Training failed: %v", err)
	}
	log.Printf("✓ Model trained (train=%.3f test=%.3f)", report.TrainAccuracy, report.TestAccuracy)

	for name, session := range map[string]*ml.RawSession{
		"human": ml.RandomHumanSession(1),
		"bot":   ml.RandomBotSession(2),
	} {
		verdict, decision, err := analyzer.Score(context.Background(), session)
		if err != nil {
			log.Fatalf("Prediction failed: %v", err)
		}
		fmt.Printf("%s session: human_probability=%.3f risk=%.3f decision=%s\n",
			name, verdict.HumanProbability, verdict.RiskScore, decision)
	}
}
