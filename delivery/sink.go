// Package delivery records the payloads that nodes accept.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sarchlab/bridgesim/datarecording"
	"github.com/sarchlab/bridgesim/frame"
)

// A Sink receives every payload that a node accepts, in arrival order.
type Sink interface {
	Record(node, from frame.Address, text string) error
}

// Line formats a delivery the way it is written into output files.
func Line(from frame.Address, text string) string {
	return fmt.Sprintf("%d_%d: %s", from.Network, from.ID, text)
}

// OutputFileName returns the name of the output file of a node.
func OutputFileName(node frame.Address) string {
	return fmt.Sprintf("node%d_%doutput.txt", node.Network, node.ID)
}

// FileSink appends deliveries to one text file per node.
type FileSink struct {
	dir string

	lock  sync.Mutex
	locks map[frame.Address]*sync.Mutex
}

// NewFileSink creates a FileSink that writes into dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{
		dir:   dir,
		locks: make(map[frame.Address]*sync.Mutex),
	}
}

// Path returns the output file of a node.
func (s *FileSink) Path(node frame.Address) string {
	return filepath.Join(s.dir, OutputFileName(node))
}

// Reset creates empty output files for the nodes, dropping the content of a
// previous run.
func (s *FileSink) Reset(nodes []frame.Address) error {
	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return err
	}

	for _, n := range nodes {
		err := os.WriteFile(s.Path(n), nil, 0o644)
		if err != nil {
			return err
		}
	}

	return nil
}

// Record appends one line to the output file of the node.
func (s *FileSink) Record(node, from frame.Address, text string) error {
	l := s.lockOf(node)
	l.Lock()
	defer l.Unlock()

	f, err := os.OpenFile(s.Path(node),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(f, Line(from, text))
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func (s *FileSink) lockOf(node frame.Address) *sync.Mutex {
	s.lock.Lock()
	defer s.lock.Unlock()

	l, ok := s.locks[node]
	if !ok {
		l = new(sync.Mutex)
		s.locks[node] = l
	}

	return l
}

// MemorySink keeps the deliveries in memory.
type MemorySink struct {
	lock  sync.Mutex
	lines map[frame.Address][]string
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{lines: make(map[frame.Address][]string)}
}

// Record keeps the line.
func (s *MemorySink) Record(node, from frame.Address, text string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.lines[node] = append(s.lines[node], Line(from, text))

	return nil
}

// Lines returns the lines recorded for a node.
func (s *MemorySink) Lines(node frame.Address) []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return append([]string(nil), s.lines[node]...)
}

// Total returns the number of lines recorded for all the nodes.
func (s *MemorySink) Total() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	n := 0
	for _, l := range s.lines {
		n += len(l)
	}

	return n
}

// TableName is the table that RecorderSink writes into.
const TableName = "delivery"

// Entry is a row of the delivery table.
type Entry struct {
	RunID  string
	Node   string
	Source string
	Text   string
}

// RecorderSink writes deliveries into a data recorder.
type RecorderSink struct {
	runID    string
	recorder datarecording.DataRecorder
}

// NewRecorderSink creates the delivery table and returns a sink writing into
// it.
func NewRecorderSink(
	runID string,
	recorder datarecording.DataRecorder,
) *RecorderSink {
	recorder.CreateTable(TableName, Entry{})

	return &RecorderSink{runID: runID, recorder: recorder}
}

// Record inserts a row.
func (s *RecorderSink) Record(node, from frame.Address, text string) error {
	s.recorder.InsertData(TableName, Entry{
		RunID:  s.runID,
		Node:   node.String(),
		Source: from.String(),
		Text:   text,
	})

	return nil
}

// MultiSink sends every delivery to all of its sinks.
type MultiSink []Sink

// Record forwards to every sink and returns the first error.
func (m MultiSink) Record(node, from frame.Address, text string) error {
	var first error

	for _, s := range m {
		err := s.Record(node, from, text)
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}
