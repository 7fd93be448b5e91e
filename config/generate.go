package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/bridgesim/frame"
)

// NodeAddresses places node ids 0..nodes-1 round-robin into networks
// 1..networks.
func NodeAddresses(nodes, networks int) []frame.Address {
	addrs := make([]frame.Address, 0, nodes)
	for i := 0; i < nodes; i++ {
		addrs = append(addrs, frame.Address{Network: i%networks + 1, ID: i})
	}

	return addrs
}

// GenerateDemo writes a configuration in which every node greets every other
// node. An existing firewall file is kept; otherwise an empty one is created.
func GenerateDemo(dir string, nodes, networks int) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	addrs := NodeAddresses(nodes, networks)
	for _, from := range addrs {
		var sb strings.Builder

		for _, to := range addrs {
			if to == from {
				continue
			}

			fmt.Fprintf(&sb, "%s: from %s\n", to, from)
		}

		path := filepath.Join(dir, MessageFileName(from))
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			return err
		}
	}

	fwPath := filepath.Join(dir, FirewallFileName)

	_, err = os.Stat(fwPath)
	if errors.Is(err, fs.ErrNotExist) {
		return os.WriteFile(fwPath, nil, 0o644)
	}

	return err
}
