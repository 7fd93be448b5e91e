// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/monitoring/web"
	"github.com/sarchlab/bridgesim/wiring"
)

// Monitor turns a simulation into a server so that it can be watched while it
// runs.
type Monitor struct {
	devices    []device.Device
	fabric     *wiring.Fabric
	portNumber int

	profileDuration time.Duration

	server   *http.Server
	listener net.Listener

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
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

// RegisterFabric sets the fabric whose wires are reported.
func (m *Monitor) RegisterFabric(f *wiring.Fabric) {
	m.fabric = f
}

// RegisterDevice registers a device to be monitored.
func (m *Monitor) RegisterDevice(d device.Device) {
	m.devices = append(m.devices, d)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

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

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/devices", m.listDevices)
	r.HandleFunc("/api/device/{name}", m.listDeviceDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/wires", m.listWires)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := m.server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	return url
}

// StopServer shuts the server down.
func (m *Monitor) StopServer(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// OpenInBrowser opens the monitor page in the default browser.
func (m *Monitor) OpenInBrowser(url string) {
	err := browser.OpenURL(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open %s in a browser: %v\n", url, err)
	}
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.devices))
	for _, d := range m.devices {
		names = append(names, d.Name())
	}

	writeJSON(w, names)
}

// A stateReporter can copy its state under its own lock. Devices keep
// changing while the server reads them.
type stateReporter interface {
	State() any
}

func snapshot(d device.Device) any {
	if r, ok := d.(stateReporter); ok {
		return r.State()
	}

	return d
}

func (m *Monitor) listDeviceDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	d := m.findDeviceOr404(w, name)
	if d == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot(d))
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	DeviceName string `json:"device_name,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	d := m.findDeviceOr404(w, req.DeviceName)
	if d == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(snapshot(d))
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

type wireRsp struct {
	Wire  string `json:"wire"`
	Level int    `json:"level"`
}

func (m *Monitor) listWires(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := wiresParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	rsp := make([]wireRsp, 0)
	for _, wire := range m.sortAndSelectWires(sortMethod, limit, offset) {
		rsp = append(rsp, wireRsp{Wire: wire.Name(), Level: wire.Len()})
	}

	writeJSON(w, rsp)
}

func wiresParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "level"
	}

	if sortMethod != "level" && sortMethod != "name" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s, allowed values are `level` and `name`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}

	return n, nil
}

func (m *Monitor) sortAndSelectWires(
	sortMethod string,
	limit, offset int,
) []*wiring.Wire {
	if m.fabric == nil {
		return nil
	}

	wires := m.fabric.Wires()
	levels := make(map[*wiring.Wire]int, len(wires))

	for _, w := range wires {
		levels[w] = w.Len()
	}

	switch sortMethod {
	case "level":
		sort.SliceStable(wires, func(i, j int) bool {
			return levels[wires[i]] > levels[wires[j]]
		})
	case "name":
		sort.SliceStable(wires, func(i, j int) bool {
			return wires[i].Name() < wires[j].Name()
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(wires) {
		offset = len(wires)
	}

	end := len(wires)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return wires[offset:end]
}

func (m *Monitor) findDeviceOr404(
	w http.ResponseWriter,
	name string,
) device.Device {
	for _, d := range m.devices {
		if d.Name() == name {
			return d
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Device not found"))
	dieOnErr(err)

	return nil
}

type progressRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := append([]*ProgressBar(nil), m.progressBars...)
	m.progressBarsLock.Unlock()

	rsp := make([]progressRsp, 0, len(bars))
	for _, b := range bars {
		finished, inProgress, total := b.Snapshot()
		rsp = append(rsp, progressRsp{
			ID:         b.ID,
			Name:       b.Name,
			StartTime:  b.StartTime,
			Total:      total,
			Finished:   finished,
			InProgress: inProgress,
		})
	}

	writeJSON(w, rsp)
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
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(m.profileDuration)

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
