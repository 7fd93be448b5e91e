package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
)

// FirewallFileName is the name of the rule file in a configuration
// directory.
const FirewallFileName = "firewall.txt"

// A Source provides the configuration of a simulation.
type Source interface {
	FirewallRules() (firewall.Rules, error)
	Messages(node frame.Address) ([]Outbound, error)
}

// MessageFileName returns the name of the file holding the initial messages
// of a node.
func MessageFileName(node frame.Address) string {
	return fmt.Sprintf("node%d_%d.txt", node.Network, node.ID)
}

// DirSource reads the configuration files from a directory. A file that does
// not exist counts as empty.
type DirSource struct {
	Dir string
}

// NewDirSource creates a DirSource.
func NewDirSource(dir string) DirSource {
	return DirSource{Dir: dir}
}

// FirewallRules parses the rule file.
func (s DirSource) FirewallRules() (firewall.Rules, error) {
	path := filepath.Join(s.Dir, FirewallFileName)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return firewall.Rules{Local: make(map[int][]int)}, nil
	}

	if err != nil {
		return firewall.Rules{}, err
	}
	defer f.Close()

	rules, err := ParseFirewallRules(f)
	if err != nil {
		return firewall.Rules{}, fmt.Errorf("%s: %w", path, err)
	}

	return rules, nil
}

// Messages parses the message file of a node.
func (s DirSource) Messages(node frame.Address) ([]Outbound, error) {
	path := filepath.Join(s.Dir, MessageFileName(node))

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	defer f.Close()

	msgs, err := ParseMessages(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return msgs, nil
}

// StaticSource is a Source that holds its configuration in memory.
type StaticSource struct {
	Rules firewall.Rules
	Outbox map[frame.Address][]Outbound
}

// FirewallRules returns the rules.
func (s StaticSource) FirewallRules() (firewall.Rules, error) {
	return s.Rules, nil
}

// Messages returns the messages of a node.
func (s StaticSource) Messages(node frame.Address) ([]Outbound, error) {
	return s.Outbox[node], nil
}
