// Package monitoring turns a running signal-flow model into a web server, so
// that the controllers and nodes can be inspected while the engine runs.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sarchlab/signalflow/calc"
	"github.com/sarchlab/signalflow/monitoring/web"
	"github.com/sarchlab/signalflow/sim"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine     sim.Engine
	network    *calc.Network
	metrics    *Metrics
	portNumber int
	accessLog  io.Writer

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		metrics: NewMetrics(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithAccessLog makes the server log every request into the writer.
func (m *Monitor) WithAccessLog(w io.Writer) *Monitor {
	m.accessLog = w
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e sim.Engine) {
	m.engine = e
}

// RegisterNetwork registers the network to be monitored.
func (m *Monitor) RegisterNetwork(n *calc.Network) {
	m.network = n
}

// Metrics returns the Prometheus metrics served under /metrics.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Attach subscribes the metrics and a progress bar to every controller of the
// registered network. It must be called after the network has started.
func (m *Monitor) Attach() {
	if m.network == nil {
		return
	}

	for _, c := range m.network.Controllers() {
		m.metrics.Observe(c)

		total := uint64(0)
		maxTicks, err := c.MaxTicks()
		if err == nil && maxTicks > 0 && !math.IsInf(maxTicks, 1) {
			total = uint64(maxTicks)
		}

		m.TrackController(c, total)
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// TrackController creates a progress bar that counts the sweeps of a
// controller.
func (m *Monitor) TrackController(c *calc.Controller, total uint64) *ProgressBar {
	bar := m.CreateProgressBar(c.Name(), total)
	c.Subscribe(bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the HTTP handler that serves the monitor API and pages.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/controllers", m.listControllers)
	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{name}", m.nodeDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", m.metrics.Handler())
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	var h http.Handler = r
	h = handlers.CORS(handlers.AllowedOrigins([]string{"*"}))(h)

	if m.accessLog != nil {
		h = handlers.LoggingHandler(m.accessLog, h)
	}

	return h
}

// StartServer starts the monitor as a web server with a custom port if wanted.
// It returns the URL of the server.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()
	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	m.engine.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	m.engine.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	now := m.engine.CurrentTime()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) engineOr503(w http.ResponseWriter) bool {
	if m.engine != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, err := w.Write([]byte("No engine registered"))
	dieOnErr(err)

	return false
}

type controllerRsp struct {
	Name      string   `json:"name"`
	TickCount uint64   `json:"tick_count"`
	Dormant   bool     `json:"dormant"`
	Nodes     []string `json:"nodes"`
}

func (m *Monitor) listControllers(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]controllerRsp, 0)

	if m.network != nil {
		for _, c := range m.network.Controllers() {
			names := make([]string, 0)
			for _, n := range c.BoundNodes() {
				names = append(names, n.Name())
			}

			rsp = append(rsp, controllerRsp{
				Name:      c.Name(),
				TickCount: c.TickCount(),
				Dormant:   c.IsDormant(),
				Nodes:     names,
			})
		}
	}

	writeJSON(w, rsp)
}

type nodeRsp struct {
	Name       string  `json:"name"`
	Controller string  `json:"controller"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	State      string  `json:"state"`
	LastUpdate float64 `json:"last_update"`
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	rsp := make([]nodeRsp, 0)

	if m.network != nil {
		for _, n := range m.network.Nodes() {
			controller := ""
			if c := n.Controller(); c != nil {
				controller = c.Name()
			}

			rsp = append(rsp, nodeRsp{
				Name:       n.Name(),
				Controller: controller,
				Value:      n.LastValue(),
				Unit:       n.OutputUnit().String(),
				State:      n.State().String(),
				LastUpdate: float64(n.LastUpdateTime()),
			})
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	node := m.findNodeOr404(w, mux.Vars(r)["name"])
	if node == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(node)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	NodeName  string `json:"node_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	node := m.findNodeOr404(w, req.NodeName)
	if node == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(node)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findNodeOr404(w http.ResponseWriter, name string) calc.Node {
	var node calc.Node
	if m.network != nil {
		node, _ = m.network.Node(name)
	}

	if node == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Node not found"))
		dieOnErr(err)
	}

	return node
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(bars))
	for _, b := range bars {
		finished, total := b.Snapshot()
		rsp = append(rsp, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     total,
			Finished:  finished,
		})
	}

	writeJSON(w, rsp)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	process, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
