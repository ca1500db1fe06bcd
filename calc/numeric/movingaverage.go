package numeric

import (
	"fmt"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

// MaxWindow is the largest window a MovingAverage accepts.
const MaxWindow = 1 << 20

// MovingAverage outputs the mean of the last Window input samples. The mean
// is maintained incrementally.
//
// Window is only read at early init, when the buffer is resized and cleared.
type MovingAverage struct {
	Window  int
	Initial float64

	buf    []float64
	cursor int
	count  int
	avg    float64
}

// NewMovingAverage creates a moving-average node over the given window.
func NewMovingAverage(
	name string,
	input calc.ValueSource,
	window int,
) *calc.Calculation {
	c := calc.NewCalculation(name, &MovingAverage{Window: window})
	c.SetInput(input)

	return c
}

// InitialValue returns the output before the first update.
func (k *MovingAverage) InitialValue() float64 {
	return k.Initial
}

// OutputUnit is the input unit.
func (k *MovingAverage) OutputUnit(in unit.Type) unit.Type {
	return in
}

// Validate requires a window of one to MaxWindow samples.
func (k *MovingAverage) Validate(owner string) error {
	if k.Window < 1 {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Window",
			Reason:    "must hold at least one sample",
		}
	}

	if k.Window > MaxWindow {
		return &calc.ConfigError{
			Component: owner,
			Field:     "Window",
			Reason:    fmt.Sprintf("must not exceed %d samples", MaxWindow),
		}
	}

	return nil
}

// EarlyInit resizes and clears the buffer.
func (k *MovingAverage) EarlyInit() error {
	k.buf = make([]float64, k.Window)
	k.cursor = 0
	k.count = 0
	k.avg = 0

	return nil
}

// Step folds one more sample into the mean. While the window is filling the
// mean is over the samples seen so far. Once full, the oldest sample is
// evicted.
func (k *MovingAverage) Step(s calc.StepState) (calc.Result, error) {
	n := len(k.buf)
	if n == 0 {
		return calc.Result{}, calc.ErrNotInitialized
	}

	var avg float64
	count := k.count

	if count < n {
		count++
		avg = k.avg + (s.Input-k.avg)/float64(count)
	} else {
		avg = k.avg + (s.Input-k.buf[k.cursor])/float64(n)
	}

	return calc.Result{
		Value: avg,
		Commit: func() {
			k.buf[k.cursor] = s.Input
			k.cursor = (k.cursor + 1) % n
			k.count = count
			k.avg = avg
		},
	}, nil
}

// Mean returns the current running mean.
func (k *MovingAverage) Mean() float64 {
	return k.avg
}
