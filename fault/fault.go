// Package fault decides when the simulation injects loss or corruption.
package fault

import (
	"sync"

	"github.com/iti/rngstream"
)

// Source produces uniform random numbers in (0, 1).
type Source interface {
	RandU01() float64
}

// NewStream creates a random stream for a device. Streams are deterministic:
// creating the same streams in the same order replays the same faults.
func NewStream(name string) Source {
	return &lockedSource{src: rngstream.New(name)}
}

type lockedSource struct {
	lock sync.Mutex
	src  *rngstream.RngStream
}

func (s *lockedSource) RandU01() float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.src.RandU01()
}

// An Injector fires with a fixed probability.
type Injector struct {
	src         Source
	probability float64
}

// NewInjector creates an Injector. A probability of 0 never fires and a
// probability of 1 always fires, whatever the source returns.
func NewInjector(src Source, probability float64) Injector {
	probabilityMustBeValid(probability)

	return Injector{src: src, probability: probability}
}

// Probability returns the firing probability.
func (i Injector) Probability() float64 {
	return i.probability
}

// Fire tells if the fault should happen this time.
func (i Injector) Fire() bool {
	if i.probability <= 0 {
		return false
	}

	if i.probability >= 1 {
		return true
	}

	return i.src.RandU01() < i.probability
}

func probabilityMustBeValid(p float64) {
	if p < 0 || p > 1 {
		panic("fault probability must be within [0, 1]")
	}
}
