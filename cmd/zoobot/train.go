package main

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/natalines/zoobot/catalog"
	"github.com/natalines/zoobot/config"
	"github.com/natalines/zoobot/dataset"
	"github.com/natalines/zoobot/dirichlet"
	"github.com/natalines/zoobot/metrics"
	"github.com/natalines/zoobot/nn"
	"github.com/natalines/zoobot/schema"
	"github.com/natalines/zoobot/train"
)

func newTrainCmd() *cobra.Command {
	var configPath string
	var epochs, replicas int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on a vote catalog or mock data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				cfg, err = config.Load(configPath)
				if err != nil {
					return err
				}
			}
			if epochs > 0 {
				cfg.Epochs = epochs
			}
			if replicas > 0 {
				cfg.Replicas = replicas
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTraining(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "run config YAML (defaults used when omitted)")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "override the configured epoch budget")
	cmd.Flags().IntVar(&replicas, "replicas", 0, "override the configured replica count")
	return cmd
}

func runTraining(cfg config.Run) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	runID := uuid.NewString()[:8]
	runDir := filepath.Join(cfg.SaveDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return errors.Wrap(err, "create run dir")
	}

	s, err := cfg.ResolveSchema()
	if err != nil {
		return err
	}
	log.Info("starting run",
		zap.String("run_id", runID),
		zap.String("architecture", cfg.Architecture),
		zap.Strings("questions", s.Questions()),
		zap.Int("replicas", cfg.Replicas))

	net, err := nn.BuildBackbone(cfg.Architecture, nn.BackboneSpec{
		ImageSize: cfg.ImageSize,
		Channels:  cfg.Channels,
		OutputDim: s.Width(),
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}

	var engineOpts []dirichlet.Option
	if cfg.ClampEpsilon > 0 {
		engineOpts = append(engineOpts, dirichlet.WithClamp(cfg.ClampEpsilon, log))
	}
	engine := dirichlet.NewEngine(s, engineOpts...)

	trainSrc, valSrc, testSrc, err := loadSources(cfg, s, log)
	if err != nil {
		return err
	}

	history := metrics.NewHistory()
	csv, err := metrics.NewCSVSink(filepath.Join(runDir, "metrics.csv"))
	if err != nil {
		return err
	}
	sink := metrics.MultiSink{history, csv, metrics.NewZapSink(log)}

	trainer, err := train.NewTrainer(net, engine,
		nn.NewAdamOptimizer(cfg.AdamBeta1, cfg.AdamBeta2, 1e-8),
		nn.NewConstantScheduler(cfg.LearningRate),
		sink, log, train.TrainerConfig{
			Epochs:         cfg.Epochs,
			Patience:       cfg.Patience,
			Replicas:       cfg.Replicas,
			LogOnStep:      cfg.LogOnStep,
			CheckpointPath: filepath.Join(runDir, "best.json"),
		})
	if err != nil {
		return err
	}

	result, err := trainer.Fit(trainSrc, valSrc)
	if err != nil {
		return err
	}
	log.Info("fit finished",
		zap.Int("epochs", result.Epochs),
		zap.Int("best_epoch", result.BestEpoch),
		zap.Float64("best_val_loss", result.BestValLoss),
		zap.Bool("stopped_early", result.StoppedEarly))

	testLoss, err := trainer.Evaluate(testSrc)
	if err != nil {
		return err
	}
	log.Info("test evaluation", zap.Float64("test_loss", testLoss))

	if summary, err := history.Summarize("validation/epoch_loss"); err == nil {
		log.Info("validation loss summary",
			zap.Int("epochs", summary.Count),
			zap.Float64("min", summary.Min),
			zap.Float64("max", summary.Max),
			zap.Float64("mean", summary.Mean),
			zap.Float64("median", summary.Median))
	}

	chartPath := filepath.Join(runDir, "loss.png")
	if err := metrics.RenderLossCurve(history,
		[]string{"train/epoch_loss", "validation/epoch_loss"}, chartPath); err != nil {
		log.Warn("loss curve not rendered", zap.Error(err))
	} else {
		log.Info("loss curve written", zap.String("path", chartPath))
	}

	if err := csv.Close(); err != nil {
		return errors.Wrap(err, "flush metrics csv")
	}
	log.Info("run complete", zap.String("dir", runDir))
	return nil
}

// loadSources builds the train/val/test datasets, either from a CSV
// catalog with image cutouts or from generated mock galaxies.
func loadSources(cfg config.Run, s *schema.Schema, log *zap.Logger) (trainSrc, valSrc, testSrc dataset.Source, err error) {
	if cfg.Catalog == "" {
		return mockSources(cfg, s, log)
	}

	cat, err := catalog.Load(cfg.Catalog, s)
	if err != nil {
		return nil, nil, nil, err
	}
	log.Info("catalog loaded", zap.String("path", cfg.Catalog), zap.Int("galaxies", cat.Len()))

	trainCat, valCat, testCat, err := catalog.Split(cat, cfg.Seed)
	if err != nil {
		return nil, nil, nil, err
	}

	build := func(c *catalog.Catalog, shuffle bool) (*dataset.InMemory, error) {
		inputs, err := catalog.LoadImages(c, cfg.ImageSize)
		if err != nil {
			return nil, err
		}
		return dataset.NewInMemory(inputs, c.VoteMatrix(), cfg.BatchSize, shuffle, cfg.Seed)
	}
	if trainSrc, err = build(trainCat, true); err != nil {
		return nil, nil, nil, err
	}
	if valSrc, err = build(valCat, false); err != nil {
		return nil, nil, nil, err
	}
	if testSrc, err = build(testCat, false); err != nil {
		return nil, nil, nil, err
	}
	return trainSrc, valSrc, testSrc, nil
}

func mockSources(cfg config.Run, s *schema.Schema, log *zap.Logger) (trainSrc, valSrc, testSrc dataset.Source, err error) {
	log.Info("generating mock galaxies", zap.Int("examples", cfg.MockExamples))
	sizes := []int{cfg.MockExamples * 7 / 10, cfg.MockExamples / 10, 0}
	sizes[2] = cfg.MockExamples - sizes[0] - sizes[1]

	sources := make([]dataset.Source, 3)
	for i, n := range sizes {
		sources[i], err = dataset.Mock(s, dataset.MockConfig{
			Examples:  n,
			ImageSize: cfg.ImageSize,
			Channels:  cfg.Channels,
			BatchSize: cfg.BatchSize,
			Seed:      cfg.Seed + int64(i),
		})
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return sources[0], sources[1], sources[2], nil
}
