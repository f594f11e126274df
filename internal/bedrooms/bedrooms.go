package bedrooms

import (
	"errors"
	"strings"
)

// ErrUnresolvable is returned when a label contains neither a digit nor a
// recognizable "studio" token.
var ErrUnresolvable = errors.New("unresolvable bedroom class")

// Class is the canonical bedroom bucket a listing or transaction falls into.
// Anything with four or more bedrooms collapses into Class4Plus.
type Class string

const (
	ClassStudio Class = "studio"
	Class1BR    Class = "1br"
	Class2BR    Class = "2br"
	Class3BR    Class = "3br"
	Class4Plus  Class = "4br"
)

// AllClasses lists every class in ascending bedroom order.
var AllClasses = []Class{ClassStudio, Class1BR, Class2BR, Class3BR, Class4Plus}

// Valid reports whether c is one of the canonical classes.
func (c Class) Valid() bool {
	switch c {
	case ClassStudio, Class1BR, Class2BR, Class3BR, Class4Plus:
		return true
	}
	return false
}

func fromCount(n int) Class {
	switch {
	case n <= 0:
		return ClassStudio
	case n == 1:
		return Class1BR
	case n == 2:
		return Class2BR
	case n == 3:
		return Class3BR
	default:
		return Class4Plus
	}
}

// Normalize maps a free-text bedroom label ("studio", "1 B/R",
// "2 bed rooms+hall", "3") to its canonical class. The "studio" token wins
// over any digit; otherwise the first decimal digit in the string decides.
func Normalize(label string) (Class, error) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if strings.Contains(lower, "studio") {
		return ClassStudio, nil
	}
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			return fromCount(int(r - '0')), nil
		}
	}
	return "", ErrUnresolvable
}

// UnitCount sums, across a building's room-count map, the units whose label
// normalizes to class. The map keys are human labels ("1 B/R", "Studio") as
// stored by the import pipeline.
//
// The second return value is false when the count is unknown: the map is
// missing entirely, or no key resolves to the requested class. Callers must
// keep "unknown" apart from a genuine zero, since a silent zero would poison
// per-unit ratios downstream.
func UnitCount(rooms map[string]int, class Class) (int, bool) {
	if len(rooms) == 0 {
		return 0, false
	}
	total := 0
	found := false
	for label, n := range rooms {
		c, err := Normalize(label)
		if err != nil {
			continue
		}
		if c == class {
			total += n
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return total, true
}
