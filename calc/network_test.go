package calc

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

var _ = Describe("Network", func() {
	var (
		engine  *sim.SerialEngine
		network *Network
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		network = NewNetwork()
	})

	It("should reject duplicated names", func() {
		c := network.AddController(
			MakeControllerBuilder().WithScheduler(engine).Build("Ctrl"))

		Expect(func() {
			network.AddNode(newLinear("Ctrl", c, Const(0), 1, 0))
		}).To(Panic())
	})

	It("should look up components by name", func() {
		c := network.AddController(
			MakeControllerBuilder().WithScheduler(engine).Build("Ctrl"))
		n := network.AddNode(newLinear("Node", c, Const(0), 1, 0))

		found, ok := network.Node("Node")
		Expect(ok).To(BeTrue())
		Expect(found).To(BeIdenticalTo(n))

		_, ok = network.Node("Ctrl")
		Expect(ok).To(BeFalse())

		foundCtrl, ok := network.Controller("Ctrl")
		Expect(ok).To(BeTrue())
		Expect(foundCtrl).To(BeIdenticalTo(c))

		Expect(network.Names()).To(Equal([]string{"Ctrl", "Node"}))
	})

	It("should report every validation problem", func() {
		c := network.AddController(
			MakeControllerBuilder().WithScheduler(engine).Build("Ctrl"))
		network.AddNode(newLinear("NoInput", c, nil, 1, 0))
		network.AddNode(newLinear("NoController", nil, Const(0), 1, 0))

		err := network.Validate()

		Expect(errors.Is(err, ErrConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("NoInput.Input"))
		Expect(err.Error()).To(ContainSubstring("NoController.Controller"))
	})

	It("should reject controllers outside the network", func() {
		stray := MakeControllerBuilder().WithScheduler(engine).Build("Stray")
		network.AddNode(newLinear("Node", stray, Const(0), 1, 0))

		Expect(errors.Is(network.Validate(), ErrConfig)).To(BeTrue())
	})

	Context("when propagating units", func() {
		var c *Controller

		BeforeEach(func() {
			c = network.AddController(
				MakeControllerBuilder().WithScheduler(engine).Build("Ctrl"))
		})

		It("should push units downstream", func() {
			second := NewCalculation("Second", &linearKernel{gain: 1})
			second.BindController(c)
			first := NewCalculation("First", &accumulatingKernel{})
			first.BindController(c)
			first.SetInput(ConstOf(1, unit.Speed))
			second.SetInput(first)

			network.AddNode(second)
			network.AddNode(first)

			Expect(network.PropagateUnits()).To(Succeed())

			Expect(first.InputUnit()).To(Equal(unit.Speed))
			Expect(first.OutputUnit()).To(Equal(unit.Distance))
			Expect(second.InputUnit()).To(Equal(unit.Distance))
			Expect(second.OutputUnit()).To(Equal(unit.Distance))
			Expect(network.Validate()).To(Succeed())
		})

		It("should reject an incompatible declared unit", func() {
			first := NewCalculation("First", &accumulatingKernel{})
			first.BindController(c)
			first.SetInput(ConstOf(1, unit.Speed))
			second := NewCalculation("Second", &linearKernel{gain: 1})
			second.BindController(c)
			second.SetInput(first)
			Expect(second.LockInputUnit(unit.Temperature)).To(Succeed())

			network.AddNode(first)
			network.AddNode(second)

			err := network.Start()

			var cfgErr *ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Component).To(Equal("Second"))
		})

		It("should check declared units only after they settle", func() {
			second := NewCalculation("Second", &linearKernel{gain: 1})
			second.BindController(c)
			Expect(second.LockInputUnit(unit.Distance)).To(Succeed())
			first := NewCalculation("First", &accumulatingKernel{})
			first.BindController(c)
			first.SetInput(ConstOf(1, unit.Speed))
			second.SetInput(first)

			network.AddNode(second)
			network.AddNode(first)

			Expect(network.PropagateUnits()).To(Succeed())
			Expect(second.InputUnit()).To(Equal(unit.Distance))
		})
	})

	It("should run a model to the end", func() {
		c := network.AddController(MakeControllerBuilder().
			WithScheduler(engine).
			WithFirstTickTime(1).
			WithInterval(0.5).
			WithMaxTicks(4).
			Build("Ctrl"))
		acc := NewCalculation("Acc", &accumulatingKernel{})
		acc.BindController(c)
		acc.SetInput(Const(2))
		network.AddNode(acc)

		Expect(network.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(c.TickCount()).To(Equal(uint64(4)))
		Expect(acc.LastValue()).To(Equal(8.0))
		Expect(engine.CurrentTime()).To(Equal(sim.VTimeInSec(2.5)))
		Expect(network.Start()).NotTo(Succeed())
	})

	It("should fail to start a closed loop", func() {
		c := network.AddController(
			MakeControllerBuilder().WithScheduler(engine).Build("Ctrl"))
		a := newLinear("A", c, nil, 1, 1)
		b := newLinear("B", c, a, 2, 0)
		a.SetInput(b)
		network.AddNode(a)
		network.AddNode(b)

		err := network.Start()

		Expect(errors.Is(err, ErrClosedLoop)).To(BeTrue())
	})

	It("should run the most recently scheduled controller first", func() {
		recorder := &updateRecorder{}

		for _, name := range []string{"First", "Second"} {
			c := network.AddController(MakeControllerBuilder().
				WithScheduler(engine).
				WithFirstTickTime(1).
				WithInterval(1).
				WithMaxTicks(2).
				Build(name))
			n := newLinear(name+"Node", c, Const(0), 1, 0)
			n.AcceptHook(recorder)
			network.AddNode(n)
		}

		Expect(network.Start()).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		Expect(recorder.names).To(Equal([]string{
			"SecondNode", "FirstNode",
			"FirstNode", "SecondNode",
		}))
	})
})
