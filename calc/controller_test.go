package calc

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/signalflow/sim"
)

var _ = Describe("Controller", func() {
	var (
		mockCtrl  *gomock.Controller
		scheduler *MockEventScheduler
		queue     []sim.Event
		c         *Controller
	)

	drain := func() int {
		sweeps := 0
		for len(queue) > 0 {
			evt := queue[0]
			queue = queue[1:]

			Expect(c.Handle(evt)).To(Succeed())
			sweeps++
		}

		return sweeps
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		scheduler = NewMockEventScheduler(mockCtrl)
		scheduler.EXPECT().CurrentTime().Return(sim.VTimeInSec(0)).AnyTimes()
		queue = nil

		c = MakeControllerBuilder().
			WithScheduler(scheduler).
			WithFirstTickTime(0.5).
			WithInterval(2).
			WithMaxTicks(5).
			Build("Ctrl")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should validate the timing settings", func() {
		Expect(c.Validate()).To(Succeed())

		bad := MakeControllerBuilder().
			WithScheduler(scheduler).
			WithIntervalSource(Const(math.NaN())).
			Build("Bad")
		Expect(errors.Is(bad.Validate(), ErrConfig)).To(BeTrue())

		bad = MakeControllerBuilder().
			WithScheduler(scheduler).
			WithInterval(-1).
			Build("Bad")
		Expect(errors.Is(bad.Validate(), ErrConfig)).To(BeTrue())

		bad = MakeControllerBuilder().
			WithScheduler(scheduler).
			WithFirstTickTime(sim.VTimeInSec(math.Inf(1))).
			Build("Bad")
		Expect(errors.Is(bad.Validate(), ErrConfig)).To(BeTrue())
	})

	It("should sort bound nodes by sequence number", func() {
		other := MakeControllerBuilder().Build("Other")
		n3 := newLinear("Seq3", c, Const(0), 1, 0)
		n3.SetSequenceNumber(Const(3))
		n1 := newLinear("Seq1", c, Const(0), 1, 0)
		n1.SetSequenceNumber(Const(1))
		foreign := newLinear("Foreign", other, Const(0), 1, 0)
		n2 := newLinear("Seq2", c, Const(0), 1, 0)
		n2.SetSequenceNumber(Const(2))

		Expect(c.EarlyInit([]Node{n3, n1, foreign, n2})).To(Succeed())

		Expect(c.BoundNodes()).To(Equal([]Node{n1, n2, n3}))
	})

	It("should keep insertion order on ties", func() {
		a := newLinear("A", c, Const(0), 1, 0)
		b := newLinear("B", c, Const(0), 1, 0)
		z := newLinear("Z", c, Const(0), 1, 0)

		Expect(c.EarlyInit([]Node{z, a, b})).To(Succeed())

		Expect(c.BoundNodes()).To(Equal([]Node{z, a, b}))
	})

	It("should not expose the internal node list", func() {
		a := newLinear("A", c, Const(0), 1, 0)
		Expect(c.EarlyInit([]Node{a})).To(Succeed())

		nodes := c.BoundNodes()
		nodes[0] = nil

		Expect(c.BoundNodes()[0]).To(BeIdenticalTo(Node(a)))
	})

	It("should clear observers at early init", func() {
		c.Subscribe(NewMockObserver(mockCtrl))
		Expect(c.NumObservers()).To(Equal(1))

		Expect(c.EarlyInit(nil)).To(Succeed())

		Expect(c.NumObservers()).To(Equal(0))
	})

	It("should accept observers of non-comparable types", func() {
		first := sliceObserver{names: []string{"First"}}
		second := sliceObserver{names: []string{"Second"}}

		c.Subscribe(first)
		c.Subscribe(second)
		c.Unsubscribe(first)

		Expect(c.NumObservers()).To(Equal(2))
	})

	It("should schedule the first sweep at start up", func() {
		scheduler.EXPECT().
			Schedule(gomock.Any()).
			Do(func(e sim.Event) {
				Expect(e.Time()).To(Equal(sim.VTimeInSec(0.5)))
				Expect(e.Handler()).To(BeIdenticalTo(c))
				Expect(e.Priority()).To(Equal(sim.PriorityNormal))
				Expect(e.Ordering()).To(Equal(sim.LIFO))
			})

		Expect(c.EarlyInit(nil)).To(Succeed())
		Expect(c.StartUp()).To(Succeed())
	})

	It("should not start when no tick is allowed", func() {
		c = MakeControllerBuilder().
			WithScheduler(scheduler).
			WithMaxTicks(0).
			Build("Ctrl")

		Expect(c.EarlyInit(nil)).To(Succeed())
		Expect(c.StartUp()).To(Succeed())

		Expect(c.IsDormant()).To(BeTrue())
	})

	Context("when running", func() {
		var (
			recorder *updateRecorder
			nodes    []Node
		)

		BeforeEach(func() {
			recorder = &updateRecorder{}
			nodes = nil

			for i, seq := range []float64{3, 1, 2} {
				n := newLinear([]string{"C", "A", "B"}[i], c, Const(1), 1, 0)
				n.SetSequenceNumber(Const(seq))
				n.AcceptHook(recorder)
				Expect(n.EarlyInit()).To(Succeed())
				nodes = append(nodes, n)
			}

			scheduler.EXPECT().
				Schedule(gomock.Any()).
				Do(func(e sim.Event) { queue = append(queue, e) }).
				AnyTimes()
		})

		It("should stop after the max number of ticks", func() {
			Expect(c.EarlyInit(nodes)).To(Succeed())
			Expect(c.StartUp()).To(Succeed())

			sweeps := drain()

			Expect(sweeps).To(Equal(5))
			Expect(c.TickCount()).To(Equal(uint64(5)))
			Expect(c.IsDormant()).To(BeTrue())
			Expect(nodes[0].LastUpdateTime()).To(Equal(sim.VTimeInSec(8.5)))
		})

		It("should update nodes in sequence order every sweep", func() {
			Expect(c.EarlyInit(nodes)).To(Succeed())
			Expect(c.StartUp()).To(Succeed())

			drain()

			expected := []string{}
			for i := 0; i < 5; i++ {
				expected = append(expected, "A", "B", "C")
			}
			Expect(recorder.names).To(Equal(expected))
		})

		It("should notify observers after each sweep", func() {
			observer := NewMockObserver(mockCtrl)

			Expect(c.EarlyInit(nodes)).To(Succeed())
			c.Subscribe(observer)
			c.Subscribe(observer)
			Expect(c.StartUp()).To(Succeed())

			for i := 0; i < 5; i++ {
				tick := uint64(i)
				observer.EXPECT().
					SweepCompleted(c, sim.VTimeInSec(0.5+2*float64(i))).
					Do(func(ctrl *Controller, _ sim.VTimeInSec) {
						Expect(ctrl.TickCount()).To(Equal(tick))
						Expect(recorder.names).To(HaveLen(3 * (int(tick) + 1)))
					})
			}

			drain()
		})

		It("should keep going when observers fail", func() {
			failing := NewMockObserver(mockCtrl)
			failing.EXPECT().
				SweepCompleted(c, gomock.Any()).
				Return(errors.New("observer broken")).
				Times(5)

			panicking := ObserverFunc(func(*Controller, sim.VTimeInSec) error {
				panic("observer panicked")
			})

			calls := 0
			counting := ObserverFunc(func(*Controller, sim.VTimeInSec) error {
				calls++
				return nil
			})

			hook := &posRecorder{}
			c.AcceptHook(hook)

			Expect(c.EarlyInit(nodes)).To(Succeed())
			c.Subscribe(failing)
			c.Subscribe(panicking)
			c.Subscribe(counting)
			Expect(c.StartUp()).To(Succeed())

			Expect(drain()).To(Equal(5))
			Expect(calls).To(Equal(5))

			failures := 0
			for _, ctx := range hook.ctxs {
				if ctx.Pos == HookPosObserverFailure {
					failures++
				}
			}
			Expect(failures).To(Equal(10))
		})

		It("should stop notifying unsubscribed observers", func() {
			calls := 0
			counting := ObserverFunc(func(*Controller, sim.VTimeInSec) error {
				calls++
				return nil
			})

			Expect(c.EarlyInit(nodes)).To(Succeed())
			c.Subscribe(counting)
			Expect(c.StartUp()).To(Succeed())

			Expect(c.Handle(queue[0])).To(Succeed())
			queue = queue[1:]
			c.Unsubscribe(counting)
			drain()

			Expect(calls).To(Equal(1))
		})

		It("should sweep all nodes and stop when a node fails", func() {
			broken := newLinear("Broken", c, failingSource{err: errSourceBroken}, 1, 0)
			Expect(broken.EarlyInit()).To(Succeed())

			calls := 0
			Expect(c.EarlyInit(append([]Node{broken}, nodes...))).To(Succeed())
			c.Subscribe(ObserverFunc(func(*Controller, sim.VTimeInSec) error {
				calls++
				return nil
			}))
			Expect(c.StartUp()).To(Succeed())

			evt := queue[0]
			queue = queue[1:]
			err := c.Handle(evt)

			var sweepErr *SweepError
			Expect(errors.As(err, &sweepErr)).To(BeTrue())
			Expect(sweepErr.Errs).To(HaveLen(1))
			Expect(errors.Is(err, errSourceBroken)).To(BeTrue())
			Expect(recorder.names).To(Equal([]string{"A", "B", "C"}))
			Expect(calls).To(Equal(1))
			Expect(c.TickCount()).To(Equal(uint64(1)))
			Expect(c.IsDormant()).To(BeTrue())
			Expect(queue).To(BeEmpty())
		})

		It("should resample the interval every sweep", func() {
			intervals := Func(Const(0), func(float64) float64 {
				return float64(c.TickCount())
			})
			c = MakeControllerBuilder().
				WithScheduler(scheduler).
				WithIntervalSource(intervals).
				WithMaxTicks(4).
				Build("Ctrl")
			Expect(c.EarlyInit(nil)).To(Succeed())
			Expect(c.StartUp()).To(Succeed())

			times := []sim.VTimeInSec{}
			for len(queue) > 0 {
				times = append(times, queue[0].Time())
				Expect(c.Handle(queue[0])).To(Succeed())
				queue = queue[1:]
			}

			Expect(times).To(Equal([]sim.VTimeInSec{0, 1, 3, 6}))
		})

		It("should fail a sweep that meets a negative interval", func() {
			c = MakeControllerBuilder().
				WithScheduler(scheduler).
				WithIntervalSource(Func(Const(0), func(float64) float64 {
					if c.TickCount() > 1 {
						return -1
					}
					return 1
				})).
				Build("Ctrl")
			Expect(c.EarlyInit(nil)).To(Succeed())
			Expect(c.StartUp()).To(Succeed())

			Expect(c.Handle(queue[0])).To(Succeed())
			err := c.Handle(queue[1])

			Expect(errors.Is(err, ErrConfig)).To(BeTrue())
			Expect(c.IsDormant()).To(BeTrue())
			Expect(queue).To(HaveLen(2))
		})

		It("should fail a sweep that meets an invalid max ticks", func() {
			c = MakeControllerBuilder().
				WithScheduler(scheduler).
				WithMaxTicksSource(Func(Const(0), func(float64) float64 {
					if c.TickCount() > 0 {
						return math.NaN()
					}
					return 3
				})).
				Build("Ctrl")
			Expect(c.Validate()).To(Succeed())
			Expect(c.EarlyInit(nil)).To(Succeed())
			Expect(c.StartUp()).To(Succeed())

			err := c.Handle(queue[0])

			var cfgErr *ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Component).To(Equal("Ctrl"))
			Expect(c.IsDormant()).To(BeTrue())
			Expect(c.TickCount()).To(Equal(uint64(1)))
			Expect(queue).To(HaveLen(1))
		})
	})
})

type sliceObserver struct {
	names []string
}

func (o sliceObserver) SweepCompleted(*Controller, sim.VTimeInSec) error {
	return nil
}
