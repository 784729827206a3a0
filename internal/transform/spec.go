package transform

import "errors"

// Spec is the immutable description of one transform process invocation:
// the full argument vector (Args[0] is the executable) plus any auxiliary
// files the process reads alongside its standard input, such as a
// subtitle file. A Spec is never re-entered mid-run; a new run builds a
// new Spec.
type Spec struct {
	Args     []string
	AuxPaths []string
}

// Validate reports whether the spec can be started at all.
func (s Spec) Validate() error {
	if len(s.Args) == 0 || s.Args[0] == "" {
		return errors.New("transform spec has no executable")
	}
	return nil
}

// Executable returns the program the spec launches, or "" for an empty
// spec.
func (s Spec) Executable() string {
	if len(s.Args) == 0 {
		return ""
	}
	return s.Args[0]
}
