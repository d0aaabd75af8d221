package gesture

import (
	"fmt"
	"strings"
)

// Posture is the hand pose label reported for a frame.
type Posture int

const (
	// PostureUnknown means no hand or an unclassified pose.
	PostureUnknown Posture = iota
	// PostureOpen is an open hand.
	PostureOpen
	// PostureClosed is a closed fist. It drives capture.
	PostureClosed
)

var postureNames = map[Posture]string{
	PostureUnknown: "unknown",
	PostureOpen:    "open",
	PostureClosed:  "closed",
}

// String implements fmt.Stringer.
func (p Posture) String() string {
	if name, ok := postureNames[p]; ok {
		return name
	}
	return fmt.Sprintf("posture(%d)", int(p))
}

// ParsePosture parses a posture name, case-insensitively.
func ParsePosture(s string) (Posture, error) {
	for p, name := range postureNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return PostureUnknown, fmt.Errorf("unknown posture %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Posture) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Posture) UnmarshalText(text []byte) error {
	v, err := ParsePosture(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
