package configuration

import (
	"strings"

	"github.com/pkg/errors"
)

const protocolSeparator = "://"

// ParseTarget parses the short form of a target: host:port, optionally prefixed with the protocol,
// e.g. redis://127.0.0.1:6379
func ParseTarget(s string) (TargetConfig, error) {
	s = strings.TrimSpace(s)
	target := TargetConfig{Address: s}
	if idx := strings.Index(s, protocolSeparator); idx != -1 {
		target.Protocol = Protocol(s[:idx])
		target.Address = s[idx+len(protocolSeparator):]
	}
	if target.Address == "" {
		return TargetConfig{}, errors.Errorf("no address in target %q", s)
	}
	return target, nil
}

func (t TargetConfig) String() string {
	return string(t.ProtocolOrDefault()) + protocolSeparator + t.Address
}
