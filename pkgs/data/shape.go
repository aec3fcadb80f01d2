package data

import (
	"fmt"

	shellerrors "github.com/aledsdavies/pipeshell/pkgs/errors"
)

// Shape is the structural category of piped data.
type Shape int

const (
	ShapeAny Shape = iota
	ShapeEmpty
	ShapeScalar
	ShapeRecord
	ShapeList
	ShapeTable
)

var shapeNames = [...]string{
	ShapeAny:    "any",
	ShapeEmpty:  "empty",
	ShapeScalar: "scalar",
	ShapeRecord: "record",
	ShapeList:   "list",
	ShapeTable:  "table",
}

func (s Shape) String() string {
	if int(s) >= 0 && int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// InputMode selects how a command treats piped input.
type InputMode int

const (
	// AcceptsNone rejects any non-empty input.
	AcceptsNone InputMode = iota
	// AcceptsAny takes input of every shape.
	AcceptsAny
	// AcceptsShape takes Empty or exactly one shape.
	AcceptsShape
)

// InputContract is a command's declared piped-input requirement.
type InputContract struct {
	Mode  InputMode
	Shape Shape
}

// NoInput declares that the command takes no piped input.
func NoInput() InputContract { return InputContract{Mode: AcceptsNone} }

// AnyInput declares that the command takes input of any shape.
func AnyInput() InputContract { return InputContract{Mode: AcceptsAny, Shape: ShapeAny} }

// Accepts declares one accepted shape. Accepts(ShapeAny) is AnyInput.
func Accepts(shape Shape) InputContract {
	if shape == ShapeAny {
		return AnyInput()
	}
	return InputContract{Mode: AcceptsShape, Shape: shape}
}

// Validate checks piped input against the contract.
func (c InputContract) Validate(in Data) error {
	switch c.Mode {
	case AcceptsAny:
		return nil
	case AcceptsShape:
		if in.IsEmpty() {
			return nil
		}
		if actual := in.Shape(); actual != c.Shape {
			return shellerrors.NewShapeMismatchError(c.Shape.String(), actual.String())
		}
		return nil
	default:
		if !in.IsEmpty() {
			return shellerrors.Usagef("command does not accept piped input")
		}
		return nil
	}
}

func (c InputContract) String() string {
	switch c.Mode {
	case AcceptsAny:
		return "any"
	case AcceptsShape:
		return c.Shape.String()
	default:
		return "none"
	}
}
