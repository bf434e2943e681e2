package facet

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentKind classifies one step of a Path.
type SegmentKind int

const (
	// SegmentName selects a property, or a key of a map.
	SegmentName SegmentKind = iota + 1

	// SegmentIndex selects a position of a slice or array: [n].
	SegmentIndex

	// SegmentKey selects a map key, taken verbatim: (key).
	SegmentKey
)

// Segment is one step of a Path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
	Key   string
}

func (s Segment) String() string {
	switch s.Kind {
	case SegmentIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	case SegmentKey:
		return "(" + s.Key + ")"
	}
	return s.Name
}

// Path is a parsed attribute path such as "orders[2].lines(sku-1).qty".
type Path []Segment

// String renders the path canonically: names joined by dots, indexes and
// keys attached to the step they follow.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.Kind == SegmentName && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// ParsePath parses a dot-separated path. Each part is a name followed by
// any number of [n] and (key) suffixes, or the suffixes alone. Keys run to
// the closing parenthesis and may contain dots.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, newPathError(ErrInvalidArgument, s, "", nil, fmt.Errorf("empty path"))
	}

	var out Path
	i := 0
	for {
		start := i
		for i < len(s) && !strings.ContainsRune(".[]()", rune(s[i])) {
			i++
		}
		if i > start {
			out = append(out, Segment{Kind: SegmentName, Name: s[start:i]})
		}

		for i < len(s) && (s[i] == '[' || s[i] == '(') {
			seg, next, err := parseSuffix(s, i)
			if err != nil {
				return nil, err
			}
			out = append(out, seg)
			i = next
		}

		if i == start {
			return nil, badPath(s, i, "empty path part")
		}
		if i == len(s) {
			return out, nil
		}
		if s[i] != '.' {
			return nil, badPath(s, i, fmt.Sprintf("unexpected %q", s[i]))
		}
		i++
		if i == len(s) {
			return nil, badPath(s, i, "trailing dot")
		}
	}
}

// parseSuffix parses the [n] or (key) suffix starting at s[i].
func parseSuffix(s string, i int) (Segment, int, error) {
	if s[i] == '(' {
		end := strings.IndexByte(s[i+1:], ')')
		if end < 0 {
			return Segment{}, 0, badPath(s, i, "unclosed key")
		}
		return Segment{Kind: SegmentKey, Key: s[i+1 : i+1+end]}, i + end + 2, nil
	}

	end := strings.IndexByte(s[i+1:], ']')
	if end < 0 {
		return Segment{}, 0, badPath(s, i, "unclosed index")
	}
	raw := s[i+1 : i+1+end]
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || strings.TrimSpace(raw) != raw {
		return Segment{}, 0, badPath(s, i, fmt.Sprintf("bad index %q", raw))
	}
	return Segment{Kind: SegmentIndex, Index: n}, i + end + 2, nil
}

func badPath(s string, at int, detail string) error {
	return newPathError(ErrInvalidArgument, s, s[min(at, len(s)):], nil, fmt.Errorf("%s at offset %d", detail, at))
}
