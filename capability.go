package facet

import (
	"fmt"
	"strings"
)

// Mode selects which members of a type define its attribute set.
type Mode int

const (
	// ModeField discovers exported struct fields only.
	ModeField Mode = iota + 1

	// ModeProperty discovers accessor methods only (GetX/IsX/SetX and
	// paired bare X getters).
	ModeProperty

	// ModeHybrid discovers the union of fields and accessors. Accessor
	// metadata wins when the two disagree on a type.
	ModeHybrid
)

// validModes contains all valid discovery modes.
var validModes = map[Mode]string{
	ModeField:    "field",
	ModeProperty: "property",
	ModeHybrid:   "hybrid",
}

// IsValidMode returns true if m is a known discovery mode.
func IsValidMode(m Mode) bool {
	_, ok := validModes[m]
	return ok
}

func (m Mode) String() string {
	if s, ok := validModes[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "field", "property" or "hybrid".
func ParseMode(s string) (Mode, error) {
	for m, name := range validModes {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown discovery mode %q", ErrInvalidArgument, s)
}

// TagName is the struct tag consulted for names and options:
//
//	Name string `facet:"title,readonly"`
//	Cache []byte `facet:",transient"`
//	secret string `facet:"-"`
const TagName = "facet"

// TagOption is an option accepted after the name in a facet tag.
type TagOption string

const (
	// OptTransient keeps the property but flags it Transient.
	OptTransient TagOption = "transient"

	// OptReadOnly marks the property Final: gettable, never settable.
	OptReadOnly TagOption = "readonly"
)

// validTagOptions contains all valid tag options for tag validation.
var validTagOptions = map[TagOption]bool{
	OptTransient: true,
	OptReadOnly:  true,
}

// IsValidTagOption returns true if opt is a known tag option.
func IsValidTagOption(opt TagOption) bool {
	return validTagOptions[opt]
}

// PropertyFilter selects properties by capability.
type PropertyFilter func(*PropertyDescriptor) bool

// Predefined filters for IsAttributeValid and TypeDescriptor.Filter.
var (
	AnyProperty PropertyFilter = func(*PropertyDescriptor) bool { return true }

	Readable PropertyFilter = func(p *PropertyDescriptor) bool { return p.Gettable }

	Writable PropertyFilter = func(p *PropertyDescriptor) bool { return p.Settable }

	ReadWrite PropertyFilter = func(p *PropertyDescriptor) bool { return p.Gettable && p.Settable }

	CompleteOnly PropertyFilter = func(p *PropertyDescriptor) bool { return p.Complete }

	Persistent PropertyFilter = func(p *PropertyDescriptor) bool { return p.Gettable && !p.Transient }
)

// And combines filters; all must accept.
func (f PropertyFilter) And(others ...PropertyFilter) PropertyFilter {
	return func(p *PropertyDescriptor) bool {
		if !f(p) {
			return false
		}
		for _, o := range others {
			if !o(p) {
				return false
			}
		}
		return true
	}
}
