package calc

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

var _ = Describe("Calculation", func() {
	var (
		ctrl   *Controller
		kernel *linearKernel
		node   *Calculation
	)

	BeforeEach(func() {
		ctrl = MakeControllerBuilder().Build("Ctrl")
		kernel = &linearKernel{gain: 2, offset: 1, initial: 7}
		node = NewCalculation("Node", kernel)
		node.BindController(ctrl)
		node.SetInput(Const(3))
	})

	It("should refuse to update before early init", func() {
		err := node.Update(1)

		Expect(errors.Is(err, ErrNotInitialized)).To(BeTrue())
		Expect(node.State()).To(Equal(NodeUninitialized))
	})

	It("should seed the output at early init and the input at late init", func() {
		Expect(node.EarlyInit()).To(Succeed())
		Expect(node.LastValue()).To(Equal(7.0))
		Expect(node.State()).To(Equal(NodeSeeded))

		Expect(node.LateInit()).To(Succeed())
		Expect(node.LastInput()).To(Equal(3.0))
	})

	It("should update the cached triple", func() {
		Expect(node.EarlyInit()).To(Succeed())
		Expect(node.Update(2)).To(Succeed())

		Expect(node.LastUpdateTime()).To(Equal(sim.VTimeInSec(2)))
		Expect(node.LastInput()).To(Equal(3.0))
		Expect(node.LastValue()).To(Equal(7.0))
		Expect(node.State()).To(Equal(NodeUpdated))
		Expect(kernel.commits).To(Equal(1))
	})

	It("should sample without side effects", func() {
		Expect(node.EarlyInit()).To(Succeed())
		Expect(node.LateInit()).To(Succeed())
		node.SetInput(Const(10))

		v1, err1 := node.Sample(nil, 5)
		v2, err2 := node.Sample(nil, 5)

		Expect(err1).NotTo(HaveOccurred())
		Expect(err2).NotTo(HaveOccurred())
		Expect(v1).To(Equal(21.0))
		Expect(v2).To(Equal(v1))
		Expect(node.LastUpdateTime()).To(Equal(sim.VTimeInSec(0)))
		Expect(node.LastInput()).To(Equal(3.0))
		Expect(node.LastValue()).To(Equal(7.0))
		Expect(kernel.commits).To(Equal(0))
	})

	It("should report the update through a hook", func() {
		recorder := &updateRecorder{}
		node.AcceptHook(recorder)

		Expect(node.EarlyInit()).To(Succeed())
		Expect(node.Update(1)).To(Succeed())

		Expect(recorder.names).To(Equal([]string{"Node"}))
	})

	Context("when validating", func() {
		It("should require a controller", func() {
			node.BindController(nil)

			err := node.Validate()

			var cfgErr *ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal("Controller"))
		})

		It("should require an input", func() {
			node.SetInput(nil)

			Expect(errors.Is(node.Validate(), ErrConfig)).To(BeTrue())
		})

		It("should reject negative sequence numbers", func() {
			node.SetSequenceNumber(Const(-1))

			Expect(errors.Is(node.Validate(), ErrConfig)).To(BeTrue())
		})

		It("should reject a source of another unit", func() {
			Expect(node.LockInputUnit(unit.Temperature)).To(Succeed())
			node.SetInput(ConstOf(1, unit.Mass))

			Expect(errors.Is(node.Validate(), ErrConfig)).To(BeTrue())
		})

		It("should accept a valid node", func() {
			Expect(node.Validate()).To(Succeed())
		})
	})

	Context("with units", func() {
		It("should derive the output unit from the kernel", func() {
			acc := NewCalculation("Acc", &accumulatingKernel{})

			Expect(acc.SetInputUnit(unit.Rate)).To(Succeed())
			Expect(acc.OutputUnit()).To(Equal(unit.Dimensionless))

			Expect(acc.SetInputUnit(unit.Speed)).To(Succeed())
			Expect(acc.OutputUnit()).To(Equal(unit.Distance))
		})

		It("should not change a locked unit", func() {
			Expect(node.LockInputUnit(unit.Temperature)).To(Succeed())

			Expect(node.SetInputUnit(unit.Temperature)).To(Succeed())
			Expect(errors.Is(node.SetInputUnit(unit.Mass), ErrConfig)).To(BeTrue())
			Expect(node.InputUnit()).To(Equal(unit.Temperature))
			Expect(node.Inputs()[0].Unit()).To(Equal(unit.Temperature))
		})
	})

	Context("with a closed loop", func() {
		var a, b *Calculation

		BeforeEach(func() {
			a = newLinear("A", ctrl, nil, 1, 1)
			b = newLinear("B", ctrl, a, 2, 0)
			a.SetInput(b)

			Expect(a.EarlyInit()).To(Succeed())
			Expect(b.EarlyInit()).To(Succeed())
		})

		It("should fail the first update", func() {
			err := a.Update(1)

			var loopErr *ClosedLoopError
			Expect(errors.As(err, &loopErr)).To(BeTrue())
			Expect(loopErr.Node).To(Equal("A"))
			Expect(loopErr.Path).To(Equal([]string{"A", "B", "A"}))
			Expect(a.State()).To(Equal(NodeSeeded))
		})

		It("should fail sampling", func() {
			_, err := b.Sample(nil, 1)

			Expect(errors.Is(err, ErrClosedLoop)).To(BeTrue())
		})

		It("should be broken by a delaying node", func() {
			d := NewCalculation("D", &delayingKernel{})
			d.BindController(ctrl)
			d.SetInput(b)
			a.SetInput(d)
			Expect(d.EarlyInit()).To(Succeed())

			Expect(a.Update(1)).To(Succeed())
			Expect(b.Update(1)).To(Succeed())
			Expect(d.Update(1)).To(Succeed())

			Expect(a.LastValue()).To(Equal(1.0))
			Expect(b.LastValue()).To(Equal(2.0))
			Expect(d.LastValue()).To(Equal(2.0))

			v, err := d.Sample(nil, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(2.0))
		})
	})

	It("should stop at the depth bound", func() {
		var prev ValueSource = Const(1)
		for _, name := range []string{"N0", "N1", "N2", "N3"} {
			n := newLinear(name, ctrl, prev, 1, 0)
			Expect(n.EarlyInit()).To(Succeed())
			prev = n
		}

		_, err := prev.Sample(NewSampleContextWithDepth(3), 0)
		Expect(errors.Is(err, ErrClosedLoop)).To(BeTrue())

		v, err := prev.Sample(nil, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1.0))
	})
})
