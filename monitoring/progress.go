package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/sim"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// SweepCompleted counts one finished sweep. It lets a progress bar follow a
// controller directly.
func (b *ProgressBar) SweepCompleted(_ *calc.Controller, _ sim.VTimeInSec) error {
	b.IncrementFinished(1)
	return nil
}

// Snapshot returns the finished and total counts.
func (b *ProgressBar) Snapshot() (finished, total uint64) {
	b.Lock()
	defer b.Unlock()

	return b.Finished, b.Total
}
