package numeric

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/signalflow/calc"
)

var _ = Describe("UnitDelay", func() {
	It("should let readers see the previous update", func() {
		n := NewUnitDelay("Delay", timeSource{}, -1)
		n.BindController(calc.MakeControllerBuilder().Build("Ctrl"))
		Expect(n.EarlyInit()).To(Succeed())

		v, err := n.Sample(nil, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(-1.0))

		Expect(n.Update(3)).To(Succeed())
		v, err = n.Sample(nil, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(3.0))
	})

	Context("in a feedback loop", func() {
		It("should fail on the first update without a delay", func() {
			ctrl := calc.MakeControllerBuilder().Build("Ctrl")
			a := NewPolynomial("A", nil, 1, 1)
			b := NewPolynomial("B", a, 0, 2)
			a.SetInput(b)
			for _, n := range []*calc.Calculation{a, b} {
				n.BindController(ctrl)
				Expect(n.EarlyInit()).To(Succeed())
			}

			err := a.Update(1)

			Expect(errors.Is(err, calc.ErrClosedLoop)).To(BeTrue())
		})

		It("should not start a network without a delay", func() {
			m := newTestModel(3, 1)
			a := m.add(NewPolynomial("A", nil, 1, 1), 1)
			m.add(NewPolynomial("B", a, 0, 2), 2)
			b, _ := m.network.Node("B")
			a.SetInput(b)

			Expect(errors.Is(m.network.Start(), calc.ErrClosedLoop)).To(BeTrue())
		})

		It("should update every tick with a delay", func() {
			m := newTestModel(3, 1)
			a := m.add(NewPolynomial("A", nil, 1, 1), 1)
			b := m.add(NewPolynomial("B", a, 0, 2), 2)
			m.add(NewUnitDelay("D", b, 0), 3)
			d, _ := m.network.Node("D")
			a.SetInput(d)

			m.run()

			Expect(m.values("A")).To(Equal([]float64{1, 3, 7}))
			Expect(m.values("B")).To(Equal([]float64{2, 6, 14}))
			Expect(m.values("D")).To(Equal([]float64{2, 6, 14}))
		})
	})
})
