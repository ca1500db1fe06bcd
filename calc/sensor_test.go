package calc

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/signalflow/unit"
)

type room struct {
	Temperature float64
	Occupied    bool
	Heater      *heater
	Zones       []zone
}

type heater struct {
	Power int
}

type zone struct {
	Humidity float32
}

var _ = Describe("Sensor", func() {
	var ctrl *Controller

	BeforeEach(func() {
		ctrl = MakeControllerBuilder().Build("Ctrl")
	})

	It("should fail validation without an entity or property", func() {
		s := NewSensor("Sensor", nil, "")
		s.BindController(ctrl)

		err := s.Validate()

		Expect(errors.Is(err, ErrConfig)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("Entity"))
		Expect(err.Error()).To(ContainSubstring("Property"))
	})

	It("should read a map entity", func() {
		entity := NewMapEntity()
		entity.Set("Temperature", 21.5)
		s := NewSensor("Sensor", entity, "Temperature")
		s.BindController(ctrl)
		Expect(s.Validate()).To(Succeed())
		Expect(s.EarlyInit()).To(Succeed())

		Expect(s.Update(1)).To(Succeed())
		Expect(s.LastValue()).To(Equal(21.5))

		entity.Set("Temperature", 22)
		v, err := s.Sample(nil, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(22.0))
		Expect(s.LastValue()).To(Equal(21.5))
	})

	It("should fail on a missing property", func() {
		s := NewSensor("Sensor", NewMapEntity(), "Pressure")
		s.BindController(ctrl)
		Expect(s.EarlyInit()).To(Succeed())

		Expect(errors.Is(s.Update(1), ErrNoProperty)).To(BeTrue())
	})

	It("should carry the declared unit", func() {
		s := NewSensor("Sensor", NewMapEntity(), "Temperature")
		s.Kernel().(*SensorKernel).Unit = unit.Temperature

		Expect(s.OutputUnit()).To(Equal(unit.Temperature))
	})

	DescribeTable("reading struct fields",
		func(path string, expected float64) {
			r := &room{
				Temperature: 19,
				Occupied:    true,
				Heater:      &heater{Power: 1500},
				Zones:       []zone{{Humidity: 0.25}, {Humidity: 0.5}},
			}

			v, err := FieldEntity{Target: r}.Property(path, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(expected))
		},
		Entry("float", "Temperature", 19.0),
		Entry("bool", "Occupied", 1.0),
		Entry("pointer", "Heater.Power", 1500.0),
		Entry("slice", "Zones.1.Humidity", 0.5),
	)

	It("should fail on unknown fields", func() {
		_, err := FieldEntity{Target: &room{}}.Property("Pressure", 0)

		Expect(errors.Is(err, ErrNoProperty)).To(BeTrue())
	})
})
