package tracing

import (
	"sync"
	"time"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/bridgesim/datarecording"
)

// TaskTableName is the table where the DBTracer stores the tasks.
const TaskTableName = "arq_task"

// TaskEntry is a row of the task table. Times are seconds since the tracer
// was created. Unsettled tasks have a negative end time.
type TaskEntry struct {
	RunID     string
	ID        string
	Kind      string
	What      string
	Location  string
	StartTime float64
	EndTime   float64
	Resends   int
	Outcome   string
}

// DBTracer is a tracer that stores tasks into a data recorder.
type DBTracer struct {
	mu      sync.Mutex
	runID   string
	origin  time.Time
	backend datarecording.DataRecorder

	tracingTasks map[string]*TaskEntry
}

// NewDBTracer creates a new DBTracer. Tasks that never end are written when
// Terminate is called, which also happens at exit.
func NewDBTracer(
	runID string,
	origin time.Time,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(TaskTableName, TaskEntry{})

	t := &DBTracer{
		runID:        runID,
		origin:       origin,
		backend:      dataRecorder,
		tracingTasks: make(map[string]*TaskEntry),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

func (t *DBTracer) since(at time.Time) float64 {
	return at.Sub(t.origin).Seconds()
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	startingTaskMustBeValid(task)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks[task.ID] = &TaskEntry{
		RunID:     t.runID,
		ID:        task.ID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: t.since(task.StartTime),
		EndTime:   -1,
	}
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task location must be set")
	}
}

// StepTask counts the resends of a task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	for _, s := range task.Steps {
		if s.What == StepResend || s.What == StepRetransmit {
			entry.Resends++
		}
	}
}

// EndTask writes the task into the recorder.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	entry.EndTime = t.since(task.EndTime)
	if len(task.Steps) > 0 {
		entry.Outcome = task.Steps[len(task.Steps)-1].What
	}

	t.backend.InsertData(TaskTableName, *entry)
	delete(t.tracingTasks, task.ID)
}

// InFlight returns the number of tasks started but not ended.
func (t *DBTracer) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tracingTasks)
}

// Terminate writes the tasks that never ended and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, entry := range t.tracingTasks {
		entry.Outcome = "unsettled"
		t.backend.InsertData(TaskTableName, *entry)
		delete(t.tracingTasks, id)
	}

	t.backend.Flush()
}
