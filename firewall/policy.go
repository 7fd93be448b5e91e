// Package firewall decides which frames a switch refuses to forward.
package firewall

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/sarchlab/bridgesim/frame"
)

// Rules is the firewall configuration of a topology.
type Rules struct {
	// Global lists networks that no switch forwards traffic into.
	Global []int

	// Local maps a network to the node ids that the switch of that network
	// announces as blocked.
	Local map[int][]int
}

// LocalOf returns the local rules that belong to the switch of a network.
func (r Rules) LocalOf(network int) []int {
	return r.Local[network]
}

// AddGlobal adds a blocked network, ignoring duplicates.
func (r *Rules) AddGlobal(network int) {
	if slices.Contains(r.Global, network) {
		return
	}

	r.Global = append(r.Global, network)
}

// AddLocal adds a blocked id to the switch of a network, ignoring
// duplicates.
func (r *Rules) AddLocal(network, id int) {
	if r.Local == nil {
		r.Local = make(map[int][]int)
	}

	if slices.Contains(r.Local[network], id) {
		return
	}

	r.Local[network] = append(r.Local[network], id)
}

// A Policy holds the blocks that one switch enforces. The global blocks are
// shared and never change; the local blocks grow as rule frames arrive.
type Policy struct {
	lock   sync.RWMutex
	global []int
	local  []int
}

// NewPolicy creates a Policy with the given global blocks and no local
// blocks.
func NewPolicy(global []int) *Policy {
	return &Policy{global: global}
}

// AddLocal adds a blocked destination id.
func (p *Policy) AddLocal(id int) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.local = append(p.local, id)
}

// Local returns a copy of the local blocks.
func (p *Policy) Local() []int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return slices.Clone(p.local)
}

// Global returns the global blocks.
func (p *Policy) Global() []int {
	return p.global
}

// Blocks tells if the frame must not travel any further. Only messages and
// resend requests that leave their own network are blocked.
func (p *Policy) Blocks(f frame.Frame) bool {
	t := f.Type()
	if t != frame.TypeMessage && t != frame.TypeResendRequest {
		return false
	}

	if f.DestNet == f.SrcNet {
		return false
	}

	return p.matches(f)
}

func (p *Policy) matches(f frame.Frame) bool {
	if slices.Contains(p.global, int(f.DestNet)) {
		return true
	}

	p.lock.RLock()
	defer p.lock.RUnlock()

	return slices.Contains(p.local, int(f.DestID))
}
