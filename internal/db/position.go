package db

import "fmt"

// Position is a screen coordinate stored across two nullable integer columns.
type Position struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// Pair returns the coordinate as an (x, y) tuple.
func (p Position) Pair() [2]*int {
	return [2]*int{p.X, p.Y}
}

// SetPair assigns both members from values. Any length other than two fails
// with ErrPairArity and leaves p unchanged.
func (p *Position) SetPair(values []*int) error {
	if len(values) != 2 {
		return fmt.Errorf("got %d elements: %w", len(values), ErrPairArity)
	}
	p.X, p.Y = values[0], values[1]
	return nil
}

// IsSet reports whether either member has a value.
func (p Position) IsSet() bool {
	return p.X != nil || p.Y != nil
}

func (p Position) String() string {
	return fmt.Sprintf("(%s, %s)", intOrNone(p.X), intOrNone(p.Y))
}

func intOrNone(v *int) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprint(*v)
}
