// Package config reads the firewall rules, the initial messages of every
// node, and the run parameters.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sarchlab/bridgesim/firewall"
	"github.com/sarchlab/bridgesim/frame"
)

// ErrMalformedConfig is returned when a configuration file cannot be parsed.
var ErrMalformedConfig = errors.New("malformed configuration")

// An Outbound is a message that a node sends when the simulation starts.
type Outbound struct {
	Dest frame.Address
	Text string
}

func (o Outbound) String() string {
	return o.Dest.String() + ": " + o.Text
}

var (
	ruleLine    = regexp.MustCompile(`^([^:]*):.*$`)
	localRule   = regexp.MustCompile(`^\s*(\d+)_(\d+)\s*$`)
	globalRule  = regexp.MustCompile(`^\s*(\d+)[_#]`)
	messageLine = regexp.MustCompile(`^(\d+)_(\d+): (.*)$`)
)

// ParseFirewallRules reads one rule per line. A rule looks like
// "<net>#...:<comment>" to block a whole network, or "<net>_<id>:<comment>" to
// have the switch of <net> announce id as blocked.
func ParseFirewallRules(r io.Reader) (firewall.Rules, error) {
	rules := firewall.Rules{Local: make(map[int][]int)}

	err := eachLine(r, func(lineNo int, line string) error {
		m := ruleLine.FindStringSubmatch(line)
		if m == nil {
			return malformed("firewall rule", lineNo, line)
		}

		target := m[1]
		if strings.Contains(target, "#") {
			g := globalRule.FindStringSubmatch(target)
			if g == nil {
				return malformed("firewall rule", lineNo, line)
			}

			rules.AddGlobal(mustAtoi(g[1]))

			return nil
		}

		l := localRule.FindStringSubmatch(target)
		if l == nil {
			return malformed("firewall rule", lineNo, line)
		}

		rules.AddLocal(mustAtoi(l[1]), mustAtoi(l[2]))

		return nil
	})

	return rules, err
}

// ParseMessages reads one message per line, as "<destNet>_<destId>: <text>".
func ParseMessages(r io.Reader) ([]Outbound, error) {
	var msgs []Outbound

	err := eachLine(r, func(lineNo int, line string) error {
		m := messageLine.FindStringSubmatch(line)
		if m == nil || m[3] == "" {
			return malformed("message", lineNo, line)
		}

		dest := frame.Address{Network: mustAtoi(m[1]), ID: mustAtoi(m[2])}
		if !dest.FitsHeader() {
			return malformed("message", lineNo, line)
		}

		if !utf8.ValidString(m[3]) {
			return fmt.Errorf("%w: message at line %d: %w",
				ErrMalformedConfig, lineNo, frame.ErrInvalidPayload)
		}

		if len(m[3]) > frame.MaxFieldValue {
			return fmt.Errorf("%w: message at line %d: %w",
				ErrMalformedConfig, lineNo, frame.ErrPayloadTooLong)
		}

		msgs = append(msgs, Outbound{Dest: dest, Text: m[3]})

		return nil
	})

	return msgs, err
}

func eachLine(r io.Reader, fn func(lineNo int, line string) error) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if err := fn(lineNo, line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func malformed(what string, lineNo int, line string) error {
	return fmt.Errorf("%w: %s at line %d: %q",
		ErrMalformedConfig, what, lineNo, line)
}

// mustAtoi converts strings already matched by a digit pattern.
func mustAtoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}

	return v
}
