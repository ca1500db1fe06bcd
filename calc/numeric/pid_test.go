package numeric

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/unit"
)

var _ = Describe("PID", func() {
	var k *PID

	BeforeEach(func() {
		k = NewPIDKernel()
		k.SetPoint.Source = calc.Const(1)
		k.ProcessVariable.Source = calc.Const(0)
	})

	It("should act on the error and its integral", func() {
		m := newTestModel(2, 1)
		m.add(NewPID("Pid", k), 0)

		m.run()

		Expect(m.values("Pid")).To(Equal([]float64{2, 3}))
		Expect(k.Integral()).To(Equal(2.0))
	})

	It("should clamp at the high limit", func() {
		k.Gain = 5
		k.Ti = 1e12
		k.Low = 0
		k.High = 1

		m := newTestModel(1, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		Expect(m.values("Pid")).To(Equal([]float64{1.0}))
	})

	It("should clamp at the low limit", func() {
		k.Gain = 5
		k.Ti = 1e12
		k.Low = 0
		k.High = 1
		k.SetPoint.Source = calc.Const(0)
		k.ProcessVariable.Source = calc.Const(1)

		m := newTestModel(1, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		Expect(m.values("Pid")).To(Equal([]float64{0.0}))
	})

	It("should not clamp within the limits", func() {
		k.Gain = 5
		k.Ti = 1e12

		m := newTestModel(1, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		Expect(m.values("Pid")[0]).To(BeNumerically("~", 5, 1e-9))
	})

	It("should add derivative action", func() {
		k.Ti = 1e12
		k.Td = 0.5
		k.ProcessVariable.Source = timeSource{}

		m := newTestModel(2, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		values := m.values("Pid")
		Expect(values[0]).To(BeNumerically("~", 0, 1e-9))
		Expect(values[1]).To(BeNumerically("~", -1.5, 1e-9))
	})

	It("should scale the error", func() {
		k.Ti = 1e12
		k.Scale.Source = calc.Const(4)

		m := newTestModel(1, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		Expect(m.values("Pid")[0]).To(BeNumerically("~", 0.25, 1e-9))
	})

	It("should hold the output on a zero scale", func() {
		k.Scale.Source = calc.Const(0)
		k.Initial = 0.3

		m := newTestModel(2, 1)
		m.add(NewPID("Pid", k), 0)
		m.run()

		Expect(m.values("Pid")).To(Equal([]float64{0.3, 0.3}))
		Expect(k.Integral()).To(Equal(0.0))
	})

	It("should not touch its state when sampled", func() {
		n := NewPID("Pid", k)
		n.BindController(calc.MakeControllerBuilder().Build("Ctrl"))
		Expect(n.EarlyInit()).To(Succeed())

		v1, err := n.Sample(nil, 1)
		Expect(err).NotTo(HaveOccurred())
		v2, err := n.Sample(nil, 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(v1).To(Equal(v2))
		Expect(k.Integral()).To(Equal(0.0))
	})

	It("should give the node's unit to all its inputs", func() {
		n := NewPID("Pid", k)

		Expect(n.SetInputUnit(unit.Temperature)).To(Succeed())

		Expect(k.ProcessVariable.Unit()).To(Equal(unit.Temperature))
		Expect(k.SetPoint.Unit()).To(Equal(unit.Temperature))
		Expect(k.Scale.Unit()).To(Equal(unit.Temperature))
	})

	DescribeTable("rejecting bad settings",
		func(configure func(k *PID), field string) {
			configure(k)
			n := NewPID("Pid", k)
			n.BindController(calc.MakeControllerBuilder().Build("Ctrl"))

			err := n.Validate()

			var cfgErr *calc.ConfigError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Field).To(Equal(field))
		},
		Entry("zero integral time", func(k *PID) { k.Ti = 0 }, "Ti"),
		Entry("negative derivative time", func(k *PID) { k.Td = -1 }, "Td"),
		Entry("inverted limits", func(k *PID) { k.Low, k.High = 1, 0 }, "Low"),
		Entry("no set point", func(k *PID) { k.SetPoint.Source = nil }, "SetPoint"),
		Entry("no process variable",
			func(k *PID) { k.ProcessVariable.Source = nil }, "ProcessVariable"),
	)
})
