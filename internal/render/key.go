package render

import "fmt"

// Dimension selects which world dimension the renderer draws.
type Dimension int

const (
	Overworld Dimension = iota
	Nether
	End
)

// String returns the lowercase name used in template substitution.
func (d Dimension) String() string {
	switch d {
	case Nether:
		return "nether"
	case End:
		return "end"
	default:
		return "overworld"
	}
}

// ParseDimension parses a lowercase dimension name.
func ParseDimension(s string) (Dimension, error) {
	switch s {
	case "overworld":
		return Overworld, nil
	case "nether":
		return Nether, nil
	case "end":
		return End, nil
	default:
		return Overworld, fmt.Errorf("unknown dimension: %q", s)
	}
}

// Key identifies a unique render target. Two requests with equal keys are
// coalesced into one pipeline execution; any differing field is a distinct
// render. Comparable, used directly as a map key.
type Key struct {
	// Source is the path to the world archive (zip).
	Source string
	// Dest is the published artifact directory.
	Dest string
	// Template is the renderer config template path.
	Template string
	// Dimension selects the world dimension.
	Dimension Dimension
}
