package facet

import (
	"errors"
	"fmt"
	"time"
)

type Address struct {
	Street string
	City   string `facet:"town"`
	Zip    string `json:"zip" facet:",readonly"`
}

type Person struct {
	Name    string `json:"name" db:"full_name"`
	Age     int
	Email   string `facet:"-"`
	Cache   []byte `facet:",transient"`
	Tags    []string
	Scores  map[string]int
	Home    *Address
	Work    Address
	Friends []*Person
	Meta    map[string]any
	Joined  time.Time

	nickname string
}

func (p *Person) Nickname() string     { return p.nickname }
func (p *Person) SetNickname(n string) { p.nickname = n }
func (p *Person) IsAdult() bool        { return p.Age >= 18 }

// Locked pins its containers; only what they point to may change.
type Locked struct {
	Office Address           `facet:",readonly"`
	Branch *Address          `facet:",readonly"`
	Notes  map[string]string `facet:",readonly"`
	Codes  []string          `facet:",readonly"`
	Spare  *Address          `facet:",readonly"`
}

// Bean exposes its state through accessors only.
type Bean struct {
	id    int
	label string
}

func (b *Bean) GetID() int      { return b.id }
func (b *Bean) SetID(id int)    { b.id = id }
func (b *Bean) GetFuse() string { panic("fuse blown") }

func (b *Bean) GetLabel() (string, error) {
	if b.label == "boom" {
		return "", errors.New("label unavailable")
	}
	return b.label, nil
}

func (b *Bean) SetLabel(s string) error {
	if s == "" {
		return errors.New("empty label")
	}
	b.label = s
	return nil
}

// Counter produces a fresh successor on every read.
type Counter struct {
	N int
}

func (c Counter) GetNext() Counter { return Counter{N: c.N + 1} }

type Node struct {
	Name     string
	Next     *Node
	Children []*Node
}

type Audited struct {
	CreatedBy string
	Secret    string
	Revision  int
}

func (Audited) FacetMarkers() Markers {
	return Markers{
		Exclude:     []string{"secret"},
		Transient:   []string{"revision"},
		Annotations: map[string]map[string]string{"createdBy": {"audit": "true"}},
		Tags:        []string{"audited"},
	}
}

type Document struct {
	Audited
	Title string
}

func (Document) FacetMarkers() Markers {
	return Markers{
		Annotations: map[string]map[string]string{"createdBy": {"audit": "strict"}},
		Tags:        []string{"document"},
	}
}

// Money renders itself rather than being walked field by field.
type Money struct {
	Cents    int64
	Currency string
}

func (m Money) FacetSnapshot() any {
	return fmt.Sprintf("%d.%02d %s", m.Cents/100, m.Cents%100, m.Currency)
}

type Invoice struct {
	Number string
	Total  Money
}

type Color int

const (
	Red Color = iota + 1
	Green
	Blue
)

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

type Palette struct {
	Primary Color
	Others  []Color
}

type Celsius float64

type Reading struct {
	Temp  Celsius
	Grid  [2]int
	Set   map[string]struct{}
	Flags map[string]bool
}

type BadOption struct {
	Name string `facet:"name,bogus"`
}

type Labeled interface {
	GetLabel() (string, error)
}
