package tracing

import (
	"sync"
)

// StepCountTracer counts how often each step happens.
type StepCountTracer struct {
	filter            TaskFilter
	lock              sync.Mutex
	inflightTasks     map[string]Task
	stepNames         []string
	stepCount         map[string]uint64
	taskWithStepCount map[string]uint64
	started, ended    uint64
}

// NewStepCountTracer creates a new StepCountTracer.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	if filter == nil {
		filter = func(Task) bool { return true }
	}

	t := &StepCountTracer{
		filter:            filter,
		inflightTasks:     make(map[string]Task),
		stepCount:         make(map[string]uint64),
		taskWithStepCount: make(map[string]uint64),
	}

	return t
}

// GetStepNames returns all the step names collected.
func (t *StepCountTracer) GetStepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.stepNames...)
}

// GetStepCount returns the number of steps that is recorded with a certain step
// name.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

// GetTaskCount returns the number of tasks that is recorded to have a certain
// step with a given name.
func (t *StepCountTracer) GetTaskCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskWithStepCount[stepName]
}

// Started returns the number of tasks started.
func (t *StepCountTracer) Started() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.started
}

// Ended returns the number of tasks ended.
func (t *StepCountTracer) Ended() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.ended
}

// StartTask records the task start.
func (t *StepCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.started++
	t.inflightTasks[task.ID] = Task{ID: task.ID}

	for _, step := range task.Steps {
		t.countStep(step)
		t.countTask(task.ID, step)
	}
}

// StepTask counts the step.
func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; !ok {
		return
	}

	for _, step := range task.Steps {
		t.countStep(step)
		t.countTask(task.ID, step)
	}
}

func (t *StepCountTracer) countStep(step TaskStep) {
	_, ok := t.stepCount[step.What]
	if !ok {
		t.stepNames = append(t.stepNames, step.What)
	}

	t.stepCount[step.What]++
}

func (t *StepCountTracer) countTask(id string, step TaskStep) {
	originalTask, ok := t.inflightTasks[id]
	if !ok {
		return
	}

	if !taskContainsStep(originalTask, step) {
		t.taskWithStepCount[step.What]++
	}

	originalTask.Steps = append(originalTask.Steps, step)
	t.inflightTasks[id] = originalTask
}

func taskContainsStep(task Task, step TaskStep) bool {
	for _, s := range task.Steps {
		if s.What == step.What {
			return true
		}
	}

	return false
}

// EndTask records the end of the task.
func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; !ok {
		return
	}

	for _, step := range task.Steps {
		t.countStep(step)
		t.countTask(task.ID, step)
	}

	t.ended++
	delete(t.inflightTasks, task.ID)
}
