// Package uictl defines read-only control surfaces the TUI polls to render
// live hardware state without owning the hardware itself.
package uictl

import "golang.org/x/exp/constraints"

type Number interface {
	constraints.Integer | constraints.Float
}

// Dial is a control that can read some value.
type Dial[N Number] interface {
	Read() N
}

// CappedDial is a Dial with a maximum cap value.
type CappedDial[N Number] interface {
	Dial[N]
	Cap() (num, max N)
}

// Levels is a control that can read recent sample levels.
type Levels[N Number] interface {
	Read() []N
}

// DialFunc adapts a plain function to a Dial.
type DialFunc[N Number] func() N

func (f DialFunc[N]) Read() N { return f() }

// LevelsFunc adapts a plain function to Levels.
type LevelsFunc[N Number] func() []N

func (f LevelsFunc[N]) Read() []N { return f() }
