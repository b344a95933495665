// Package dashboard runs one render cycle of the fire risk dashboard: input
// validation, ingest, scoring, map dispatch and the risk level summary.
package dashboard

import "os"

// InputState classifies the path entered by the user.
type InputState int

// Input states, in the order a render cycle checks them.
const (
	InputIdle InputState = iota
	InputMissing
	InputReady
)

func (s InputState) String() string {
	switch s {
	case InputMissing:
		return "missing"
	case InputReady:
		return "ready"
	default:
		return "idle"
	}
}

// Validate reports whether path is empty, absent from the filesystem, or
// ready to load. Existence is the only check; whitespace is not trimmed.
func Validate(path string) InputState {
	if path == "" {
		return InputIdle
	}
	if _, err := os.Stat(path); err != nil {
		return InputMissing
	}
	return InputReady
}
