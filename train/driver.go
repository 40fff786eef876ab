package train

import (
	"go.uber.org/zap"

	"github.com/natalines/zoobot/nn"
)

// Driver owns the optimizer state for the full parameter set: exactly
// one optimizer instance, one schedule, one step counter. It assumes
// the network's gradient buffers already hold the global-mean gradient
// (the Controller or ReplicaGroup guarantees that).
type Driver struct {
	net   *nn.Network
	opt   nn.Optimizer
	sched nn.LRScheduler
	step  int
	log   *zap.Logger
}

// NewDriver wires an optimizer and schedule to the primary network.
func NewDriver(net *nn.Network, opt nn.Optimizer, sched nn.LRScheduler, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{net: net, opt: opt, sched: sched, log: log}
}

// Apply performs one optimizer step at the scheduled learning rate.
func (d *Driver) Apply() {
	lr := d.sched.GetLR(d.step)
	d.opt.Step(d.net, lr)
	d.step++
}

// Steps returns how many optimizer steps have been applied.
func (d *Driver) Steps() int { return d.step }

// Reset clears optimizer state and the step counter.
func (d *Driver) Reset() {
	d.opt.Reset()
	d.step = 0
	d.log.Debug("optimizer state reset", zap.String("optimizer", d.opt.Name()))
}
