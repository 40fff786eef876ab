package train

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/natalines/zoobot/dataset"
	"github.com/natalines/zoobot/dirichlet"
	"github.com/natalines/zoobot/metrics"
	"github.com/natalines/zoobot/nn"
)

// TrainerConfig controls the epoch loop.
type TrainerConfig struct {
	Epochs    int
	Patience  int // epochs without validation improvement before stopping
	Replicas  int // <= 1 disables the replica group
	LogOnStep bool

	// CheckpointPath, when set, receives the weights of the best
	// validation epoch.
	CheckpointPath string
}

// Result summarizes a finished run.
type Result struct {
	Epochs       int
	BestEpoch    int
	BestValLoss  float64
	StoppedEarly bool
}

// Trainer runs the full fit: train epochs with gradient steps,
// validation epochs without, early stopping on validation loss.
type Trainer struct {
	net    *nn.Network
	engine *dirichlet.Engine
	driver *Driver
	group  *ReplicaGroup

	trainCtl *Controller
	valCtl   *Controller

	log *zap.Logger
	cfg TrainerConfig
}

// NewTrainer assembles the per-phase controllers and, when configured,
// the replica group. The same network backs every phase; validation
// and test never touch gradients.
func NewTrainer(
	net *nn.Network,
	engine *dirichlet.Engine,
	opt nn.Optimizer,
	sched nn.LRScheduler,
	sink metrics.Sink,
	log *zap.Logger,
	cfg TrainerConfig,
) (*Trainer, error) {
	if cfg.Epochs <= 0 {
		return nil, errors.Errorf("train: epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.Patience <= 0 {
		cfg.Patience = 8
	}
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}

	t := &Trainer{
		net:      net,
		engine:   engine,
		driver:   NewDriver(net, opt, sched, log),
		trainCtl: NewController(PhaseTrain, net, engine, sink, cfg.LogOnStep),
		valCtl:   NewController(PhaseValidation, net, engine, sink, false),
		log:      log,
		cfg:      cfg,
	}
	if cfg.Replicas > 1 {
		group, err := NewReplicaGroup(net, engine, cfg.Replicas)
		if err != nil {
			return nil, err
		}
		t.group = group
	}
	return t, nil
}

// Fit trains until the epoch budget or the patience runs out. A failed
// step aborts the run: loss-computation failures signal defects, and
// retrying them would mask real model or data bugs.
func (t *Trainer) Fit(train, val dataset.Source) (*Result, error) {
	result := &Result{BestValLoss: math.Inf(1)}
	sinceImprovement := 0

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := t.trainEpoch(train); err != nil {
			return nil, errors.Wrapf(err, "train epoch %d", epoch)
		}
		t.trainCtl.LogEpoch(epoch)

		valLoss, err := t.runEval(t.valCtl, val, epoch)
		if err != nil {
			return nil, errors.Wrapf(err, "validation epoch %d", epoch)
		}
		result.Epochs = epoch + 1

		if valLoss < result.BestValLoss {
			result.BestValLoss = valLoss
			result.BestEpoch = epoch
			sinceImprovement = 0
			if t.cfg.CheckpointPath != "" {
				if err := t.net.Save(t.cfg.CheckpointPath); err != nil {
					return nil, errors.Wrap(err, "save best checkpoint")
				}
			}
		} else {
			sinceImprovement++
			if sinceImprovement >= t.cfg.Patience {
				t.log.Info("early stopping",
					zap.Int("epoch", epoch),
					zap.Int("best_epoch", result.BestEpoch),
					zap.Float64("best_val_loss", result.BestValLoss))
				result.StoppedEarly = true
				break
			}
		}
	}
	return result, nil
}

func (t *Trainer) trainEpoch(train dataset.Source) error {
	it := train.Epoch()
	for {
		batch, ok := it.Next()
		if !ok {
			return nil
		}
		if t.group != nil {
			out, err := t.group.Step(batch)
			if err != nil {
				return err
			}
			t.trainCtl.record(out)
			t.driver.Apply()
			if err := t.group.Broadcast(); err != nil {
				return err
			}
		} else {
			if _, err := t.trainCtl.RunStep(batch, true); err != nil {
				return err
			}
			t.driver.Apply()
		}
	}
}

// Evaluate runs one gradient-free pass over a held-out set under the
// test phase label and returns its mean loss.
func (t *Trainer) Evaluate(test dataset.Source) (float64, error) {
	ctl := NewController(PhaseTest, t.net, t.engine, t.trainCtl.sink, false)
	return t.runEval(ctl, test, t.driver.Steps())
}

func (t *Trainer) runEval(ctl *Controller, src dataset.Source, epoch int) (float64, error) {
	it := src.Epoch()
	for {
		batch, ok := it.Next()
		if !ok {
			break
		}
		if _, err := ctl.RunStep(batch, false); err != nil {
			return 0, err
		}
	}
	return ctl.LogEpoch(epoch), nil
}
