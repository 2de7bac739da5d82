// Package monitoring serves the live state of a running batch over HTTP and
// lets a user pause and resume the processor.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/akita-mos/cpu"
	"github.com/sarchlab/akita-mos/memory"
	"github.com/sarchlab/akita-mos/sim/hooking"
	"github.com/sarchlab/akita-mos/sim/id"
	"github.com/sarchlab/akita-mos/sim/naming"
)

// Monitor is a hook that keeps the latest state of the processor and a
// server that reports it. While the monitor is paused, the processor blocks
// at its next hook position.
type Monitor struct {
	portNumber int
	idGen      id.IDGenerator

	mu         sync.Mutex
	resumed    *sync.Cond
	paused     bool
	waiting    bool
	state      cpu.State
	lastPos    string
	steps      uint64
	components []naming.Named
	storage    *memory.Storage
	jobs       *ProgressBar

	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		idGen: id.NewIDGenerator(),
	}
	m.resumed = sync.NewCond(&m.mu)
	m.jobs = m.CreateProgressBar("Jobs", 0)

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterComponent registers a component that can be inspected while the
// monitor is paused.
func (m *Monitor) RegisterComponent(c naming.Named) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, c)
}

// RegisterStorage registers the memory that can be dumped while the monitor
// is paused.
func (m *Monitor) RegisterStorage(s *memory.Storage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.storage = s
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	return &ProgressBar{
		ID:        m.idGen.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}
}

// Jobs returns the progress bar that counts finished jobs.
func (m *Monitor) Jobs() *ProgressBar {
	return m.jobs
}

// Func records the state of the processor and blocks while paused.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	state, ok := ctx.Item.(cpu.State)
	if !ok {
		return
	}

	switch ctx.Pos {
	case cpu.HookPosJobStart:
		m.jobs.IncrementInProgress(1)
	case cpu.HookPosTermination:
		m.jobs.MoveInProgressToFinished(1)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state
	m.lastPos = ctx.Pos.Name
	if ctx.Pos == cpu.HookPosInstructionFetch {
		m.steps++
	}

	for m.paused {
		m.waiting = true
		m.resumed.Wait()
	}
	m.waiting = false
}

// Pause makes the processor block at its next hook position.
func (m *Monitor) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
}

// Continue releases the processor.
func (m *Monitor) Continue() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = false
	m.resumed.Broadcast()
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueRun)
	r.HandleFunc("/api/state", m.reportState)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/memory", m.dumpMemory)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	m.listener = listener
	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring batch with %s\n", url)

	router := m.Router()
	go func() {
		err := http.Serve(listener, router)
		if err != nil && !strings.Contains(err.Error(), "use of closed") {
			log.Panic(err)
		}
	}()

	return url, nil
}

// OpenBrowser opens the state page of a started server.
func (m *Monitor) OpenBrowser(url string) error {
	return browser.OpenURL(url + "/api/state")
}

// StopServer closes the listener of the server.
func (m *Monitor) StopServer() error {
	if m.listener == nil {
		return nil
	}

	return m.listener.Close()
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueRun(w http.ResponseWriter, _ *http.Request) {
	m.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

type stateRsp struct {
	JobID      int    `json:"job_id"`
	IC         int    `json:"ic"`
	IR         string `json:"ir"`
	R          string `json:"r"`
	C          bool   `json:"c"`
	PTR        int    `json:"ptr"`
	TTL        int    `json:"ttl"`
	TTC        int    `json:"ttc"`
	TLL        int    `json:"tll"`
	LLC        int    `json:"llc"`
	Terminated bool   `json:"terminated"`
	LastEvent  string `json:"last_event"`
	Steps      uint64 `json:"steps"`
	Paused     bool   `json:"paused"`
	Waiting    bool   `json:"waiting"`
}

func (m *Monitor) reportState(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	s := m.state
	rsp := stateRsp{
		JobID:      s.PCB.JobID,
		IC:         s.IC,
		IR:         s.IR.String(),
		R:          s.R.String(),
		C:          s.C,
		PTR:        s.PTR,
		TTL:        s.PCB.TTL,
		TTC:        s.PCB.TTC,
		TLL:        s.PCB.TLL,
		LLC:        s.PCB.LLC,
		Terminated: s.Terminated,
		LastEvent:  m.lastPos,
		Steps:      m.steps,
		Paused:     m.paused,
		Waiting:    m.waiting,
	}
	m.mu.Unlock()

	writeJSON(w, rsp)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprint(w, "[")
	for i, c := range m.components {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", c.Name())
	}
	fmt.Fprint(w, "]")
}

// inspectOr409 tells if the processor is blocked in the monitor, which is
// when its fields can be read. It must be called with the lock held.
func (m *Monitor) inspectOr409(w http.ResponseWriter) bool {
	if m.waiting {
		return true
	}

	w.WriteHeader(http.StatusConflict)
	_, err := w.Write([]byte("Pause the monitor first"))
	dieOnErr(err)

	return false
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil || !m.inspectOr409(w) {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
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

	m.mu.Lock()
	defer m.mu.Unlock()

	component := m.findComponentOr404(w, req.CompName)
	if component == nil || !m.inspectOr409(w) {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
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

type frameRsp struct {
	Frame int      `json:"frame"`
	Words []string `json:"words"`
}

func (m *Monitor) dumpMemory(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storage == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if !m.inspectOr409(w) {
		return
	}

	frames := make([]frameRsp, 0, m.storage.NumFrames())
	for f := 0; f < m.storage.NumFrames(); f++ {
		if m.storage.IsFrameEmpty(f) {
			continue
		}

		block, err := m.storage.ReadBlock(
			m.storage.FrameBase(f), m.storage.PageSize())
		dieOnErr(err)

		words := make([]string, len(block))
		for i, word := range block {
			words[i] = word.String()
		}

		frames = append(frames, frameRsp{Frame: f, Words: words})
	}

	writeJSON(w, frames)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) naming.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.jobs.Lock()
	defer m.jobs.Unlock()

	writeJSON(w, []*ProgressBar{m.jobs})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
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
	dieOnErr(err)

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
