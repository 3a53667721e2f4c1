package smoketest

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
)

// DefaultListen are the ephemeral loopback listeners, one per address family.
var DefaultListen = []string{"::1:0", "127.0.0.1:0"}

// HelpFlag makes the daemon validate its arguments, print usage, and exit.
const HelpFlag = "-h"

// Spec is one verification invocation.
type Spec struct {
	Listen           []string
	CommandFile      string
	ExtraFlags       []string
	ExpectedExitCode int
}

// NewSpec builds the default spec for daemon name inside scratchDir.
func NewSpec(name, scratchDir string) Spec {
	return Spec{
		Listen:           append([]string(nil), DefaultListen...),
		CommandFile:      filepath.Join(scratchDir, name+".cmd"),
		ExtraFlags:       []string{HelpFlag},
		ExpectedExitCode: 0,
	}
}

// Args renders the daemon command line.
func (s Spec) Args() []string {
	args := make([]string, 0, len(s.Listen)*2+2+len(s.ExtraFlags))
	for _, addr := range s.Listen {
		args = append(args, "-l", addr)
	}
	if s.CommandFile != "" {
		args = append(args, "-c", s.CommandFile)
	}
	return append(args, s.ExtraFlags...)
}

// Validate checks that at least one distinct listener is present and every
// listener parses the way the daemon splits it, on the last colon.
func (s Spec) Validate() error {
	if len(s.Listen) == 0 {
		return errors.New("at least one listen address required")
	}
	seen := make(map[string]struct{}, len(s.Listen))
	for _, addr := range s.Listen {
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("duplicate listen address %q", addr)
		}
		seen[addr] = struct{}{}
		host, port, err := SplitListen(addr)
		if err != nil {
			return err
		}
		if net.ParseIP(host) == nil {
			return fmt.Errorf("listen address %q: host %q is not an IP literal", addr, host)
		}
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("listen address %q: invalid port %q", addr, port)
		}
	}
	if s.CommandFile != "" && !filepath.IsAbs(s.CommandFile) {
		return fmt.Errorf("command file %q must be absolute", s.CommandFile)
	}
	return nil
}

// SplitListen splits addr on its last colon, so bare IPv6 literals such as
// ::1:0 are accepted as well as bracketed ones.
func SplitListen(addr string) (string, string, error) {
	idx := -1
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			idx = i
			break
		}
	}
	if idx <= 0 || idx == len(addr)-1 {
		return "", "", fmt.Errorf("listen address %q must be host:port", addr)
	}
	host := addr[:idx]
	if len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return host, addr[idx+1:], nil
}
