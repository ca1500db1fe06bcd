package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/calc/numeric"
	"github.com/sarchlab/signalflow/sim"
	"github.com/sarchlab/signalflow/unit"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		engine  *sim.SerialEngine
		network *calc.Network
		ctrl    *calc.Controller
		m       *Monitor
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		network = calc.NewNetwork()
		ctrl = network.AddController(calc.MakeControllerBuilder().
			WithScheduler(engine).
			WithFirstTickTime(1).
			WithMaxTicks(3).
			Build("Ctrl"))

		energy := numeric.NewIntegrator("Energy",
			calc.ConstOf(2, unit.Power), 0)
		energy.BindController(ctrl)
		network.AddNode(energy)

		m = NewMonitor()
		m.RegisterEngine(engine)
		m.RegisterNetwork(network)
	})

	run := func() {
		Expect(network.Start()).To(Succeed())
		m.Attach()
		Expect(engine.Run()).To(Succeed())
	}

	It("should fall back to a random port", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should report the current time", func() {
		run()

		rec := get(m.Handler(), "/api/now")

		var rsp struct{ Now float64 }
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Now).To(Equal(3.0))
	})

	It("should refuse engine commands without an engine", func() {
		m = NewMonitor()

		Expect(get(m.Handler(), "/api/pause").Code).
			To(Equal(http.StatusServiceUnavailable))
	})

	It("should pause and continue the engine", func() {
		h := m.Handler()

		Expect(get(h, "/api/pause").Code).To(Equal(http.StatusOK))
		Expect(engine.IsPaused()).To(BeTrue())

		Expect(get(h, "/api/continue").Code).To(Equal(http.StatusOK))
		Expect(engine.IsPaused()).To(BeFalse())
	})

	It("should list controllers", func() {
		run()

		rec := get(m.Handler(), "/api/controllers")

		var rsp []controllerRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(Equal([]controllerRsp{{
			Name:      "Ctrl",
			TickCount: 3,
			Dormant:   true,
			Nodes:     []string{"Energy"},
		}}))
	})

	It("should list nodes with their values", func() {
		run()

		rec := get(m.Handler(), "/api/nodes")

		var rsp []nodeRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("Energy"))
		Expect(rsp[0].Controller).To(Equal("Ctrl"))
		Expect(rsp[0].Value).To(Equal(6.0))
		Expect(rsp[0].Unit).To(Equal(unit.Energy.String()))
		Expect(rsp[0].State).To(Equal("Updated"))
		Expect(rsp[0].LastUpdate).To(Equal(3.0))
	})

	It("should answer 404 for unknown nodes", func() {
		Expect(get(m.Handler(), "/api/node/Missing").Code).
			To(Equal(http.StatusNotFound))

		req := url.PathEscape(`{"node_name":"Missing","field_name":"a"}`)
		Expect(get(m.Handler(), "/api/field/"+req).Code).
			To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		Expect(get(m.Handler(), "/api/field/nojson").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should track the progress of a controller", func() {
		Expect(network.Start()).To(Succeed())
		bar := m.TrackController(ctrl, 3)
		Expect(engine.Run()).To(Succeed())

		finished, total := bar.Snapshot()
		Expect(finished).To(Equal(uint64(3)))
		Expect(total).To(Equal(uint64(3)))

		rec := get(m.Handler(), "/api/progress")
		var rsp []progressRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("Ctrl"))
		Expect(rsp[0].Finished).To(Equal(uint64(3)))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should track every controller once attached", func() {
		run()

		rec := get(m.Handler(), "/api/progress")
		var rsp []progressRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Name).To(Equal("Ctrl"))
		Expect(rsp[0].Total).To(Equal(uint64(3)))
		Expect(rsp[0].Finished).To(Equal(uint64(3)))
	})

	It("should serve the index page", func() {
		rec := get(m.Handler(), "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("signalflow"))
	})
})

var _ = Describe("Metrics", func() {
	var (
		engine  *sim.SerialEngine
		network *calc.Network
		ctrl    *calc.Controller
		metrics *Metrics
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		network = calc.NewNetwork()
		ctrl = network.AddController(calc.MakeControllerBuilder().
			WithScheduler(engine).
			WithInterval(0.5).
			WithMaxTicks(4).
			Build("Ctrl"))

		level := numeric.NewConstant("Level", 7, unit.Dimensionless)
		level.BindController(ctrl)
		network.AddNode(level)

		metrics = NewMetrics()
		Expect(network.Start()).To(Succeed())
		metrics.Observe(ctrl)
	})

	It("should count sweeps and export node values", func() {
		Expect(engine.Run()).To(Succeed())

		Expect(testutil.ToFloat64(metrics.sweeps.WithLabelValues("Ctrl"))).
			To(Equal(4.0))
		Expect(testutil.ToFloat64(metrics.simTime)).To(Equal(1.5))
		Expect(testutil.ToFloat64(metrics.nodeValue.WithLabelValues(
			"Level", "Ctrl", unit.Dimensionless.String()))).
			To(Equal(7.0))
	})

	It("should count failed observers", func() {
		ctrl.Subscribe(calc.ObserverFunc(
			func(*calc.Controller, sim.VTimeInSec) error {
				return errors.New("broken")
			}))

		Expect(engine.Run()).To(Succeed())

		Expect(testutil.ToFloat64(
			metrics.failures.WithLabelValues("Ctrl", "observer"))).
			To(Equal(4.0))
		Expect(testutil.ToFloat64(
			metrics.failures.WithLabelValues("Ctrl", "sweep"))).
			To(Equal(0.0))
	})

	It("should serve the text format", func() {
		Expect(engine.Run()).To(Succeed())

		rec := get(metrics.Handler(), "/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(
			`signalflow_sweeps_total{controller="Ctrl"} 4`))
		Expect(rec.Body.String()).To(ContainSubstring(`node="Level"`))
	})
})
