package tracing

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bridgesim/datarecording"
)

var _ = Describe("DBTracer", func() {
	var (
		path     string
		recorder datarecording.DataRecorder
		tracer   *DBTracer
		origin   = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "trace")
		recorder = datarecording.New(path)
		tracer = NewDBTracer("run", origin, recorder)
	})

	AfterEach(func() {
		recorder.Close()
	})

	readTasks := func() []TaskEntry {
		reader := datarecording.NewReader(path + ".sqlite3")
		defer reader.Close()

		reader.MapTable(TaskTableName, TaskEntry{})
		rows, _, err := reader.Query(
			context.Background(), TaskTableName, datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())

		tasks := make([]TaskEntry, 0, len(rows))
		for _, r := range rows {
			tasks = append(tasks, *r.(*TaskEntry))
		}

		return tasks
	}

	It("should panic on an incomplete task", func() {
		Expect(func() { tracer.StartTask(Task{ID: "1"}) }).To(Panic())
	})

	It("should write a settled task", func() {
		tracer.StartTask(Task{
			ID:        "1",
			Kind:      KindMessage,
			What:      "1_0->2_1",
			Where:     "1_0",
			StartTime: origin.Add(time.Second),
		})
		tracer.StepTask(Task{ID: "1", Steps: []TaskStep{{What: StepResend}}})
		tracer.StepTask(Task{ID: "1", Steps: []TaskStep{{What: StepRetransmit}}})
		tracer.EndTask(Task{
			ID:      "1",
			EndTime: origin.Add(3 * time.Second),
			Steps:   []TaskStep{{What: "ACK"}},
		})
		recorder.Flush()

		tasks := readTasks()

		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].RunID).To(Equal("run"))
		Expect(tasks[0].StartTime).To(BeNumerically("~", 1.0))
		Expect(tasks[0].EndTime).To(BeNumerically("~", 3.0))
		Expect(tasks[0].Resends).To(Equal(2))
		Expect(tasks[0].Outcome).To(Equal("ACK"))
		Expect(tracer.InFlight()).To(Equal(0))
	})

	It("should write unsettled tasks on terminate", func() {
		tracer.StartTask(Task{
			ID:        "1",
			Kind:      KindMessage,
			What:      "1_0->2_1",
			Where:     "1_0",
			StartTime: origin,
		})

		tracer.Terminate()

		tasks := readTasks()
		Expect(tasks).To(HaveLen(1))
		Expect(tasks[0].Outcome).To(Equal("unsettled"))
		Expect(tasks[0].EndTime).To(BeNumerically("<", 0))
	})
})
