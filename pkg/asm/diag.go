package asm

import (
	"errors"
	"fmt"
)

// Class groups diagnostics by the kind of failure.
type Class int

const (
	// Syntax diagnostics come from the front end that builds elements.
	Syntax Class = iota
	// Structural: mismatched delimiters, duplicate symbols or macros, unknown macros.
	Structural
	// Resolution: unresolvable directives and symbols, cycles, type errors.
	Resolution
	// Encoding: displacement out of range, output rewound before the image start.
	Encoding
)

func (c Class) String() string {
	switch c {
	case Syntax:
		return "syntax"
	case Structural:
		return "structural"
	case Resolution:
		return "resolution"
	case Encoding:
		return "encoding"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Diagnostic is one recorded problem. It implements error.
type Diagnostic struct {
	Class   Class
	Message string
	Loc     Location
}

func (d Diagnostic) Error() string {
	if d.Loc == (Location{}) {
		return d.Message
	}
	return fmt.Sprintf("%s: %s", d.Loc, d.Message)
}

// Diagnostics is an ordered, accumulating list. Stages append and carry on.
type Diagnostics []Diagnostic

// Add records a formatted diagnostic.
func (d *Diagnostics) Add(class Class, loc Location, format string, args ...any) {
	*d = append(*d, Diagnostic{Class: class, Message: fmt.Sprintf(format, args...), Loc: loc})
}

// Append records every diagnostic of other, in order.
func (d *Diagnostics) Append(other Diagnostics) {
	*d = append(*d, other...)
}

// Err folds the list into a single error, or nil when it is empty.
func (d Diagnostics) Err() error {
	if len(d) == 0 {
		return nil
	}
	errs := make([]error, len(d))
	for i, diag := range d {
		errs[i] = diag
	}
	return errors.Join(errs...)
}

// Count returns the number of diagnostics of the given class.
func (d Diagnostics) Count(class Class) int {
	n := 0
	for _, diag := range d {
		if diag.Class == class {
			n++
		}
	}
	return n
}
