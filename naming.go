package facet

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// accessor prefixes recognised by CanonicalName.
var accessorPrefixes = []string{"get", "set", "is"}

// CanonicalName derives an attribute name from an accessor or field name.
// A leading get/set/is (either case of its first letter) is stripped when it
// is followed by an uppercase letter, then the leading letter of the rest is
// lowercased:
//
//	getSomeStuff -> someStuff
//	SetName      -> name
//	IsActive     -> active
//	Issue        -> issue
//	URLPath      -> urlPath
func CanonicalName(name string) string {
	return Decapitalize(stripAccessorPrefix(name))
}

// stripAccessorPrefix removes a get/set/is prefix followed by an uppercase
// letter. Names without such a prefix are returned unchanged.
func stripAccessorPrefix(name string) string {
	for _, p := range accessorPrefixes {
		if len(name) <= len(p) || !strings.EqualFold(name[:len(p)], p) {
			continue
		}
		if name[1:len(p)] != p[1:] {
			// only the first letter may differ in case: "Get", not "GET"
			continue
		}
		r, _ := utf8.DecodeRuneInString(name[len(p):])
		if unicode.IsUpper(r) {
			return name[len(p):]
		}
	}
	return name
}

// Decapitalize lowercases the leading letter of s. A leading run of
// uppercase letters is treated as an acronym and lowercased as a unit,
// except for its last letter when that starts the next word.
func Decapitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	if !unicode.IsUpper(runes[0]) {
		return s
	}

	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 1 || n == len(runes):
		// "Name" or "ID"
	case n == len(runes)-1 && runes[n] == 's':
		// "IDs"
	case unicode.IsLetter(runes[n]):
		// "URLPath": keep the P of Path
		n--
	}
	for i := 0; i < n; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// facetTag is the parsed form of a `facet:"name,opts"` tag.
type facetTag struct {
	name    string
	skip    bool
	options []TagOption
}

func (t facetTag) has(opt TagOption) bool {
	for _, o := range t.options {
		if o == opt {
			return true
		}
	}
	return false
}

// parseFacetTag parses the facet tag of a field, validating its options.
func parseFacetTag(tag reflect.StructTag) (facetTag, error) {
	raw, ok := tag.Lookup(TagName)
	if !ok {
		return facetTag{}, nil
	}
	if raw == "-" {
		return facetTag{skip: true}, nil
	}

	parts := strings.Split(raw, ",")
	out := facetTag{name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		opt := TagOption(p)
		if !IsValidTagOption(opt) {
			return facetTag{}, &tagOptionError{option: p}
		}
		out.options = append(out.options, opt)
	}
	return out, nil
}

type tagOptionError struct{ option string }

func (e *tagOptionError) Error() string { return "unknown facet tag option " + strconv.Quote(e.option) }

// parseStructTags splits a conventional struct tag into its key/value pairs.
// reflect.StructTag only supports lookup by key; annotations need all of
// them.
func parseStructTags(tag reflect.StructTag) map[string]string {
	out := make(map[string]string)
	s := string(tag)
	for s != "" {
		i := 0
		for i < len(s) && s[i] == ' ' {
			i++
		}
		s = s[i:]
		if s == "" {
			break
		}

		i = 0
		for i < len(s) && s[i] > ' ' && s[i] != ':' && s[i] != '"' && s[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(s) || s[i] != ':' || s[i+1] != '"' {
			break
		}
		key := s[:i]
		s = s[i+1:]

		i = 1
		for i < len(s) && s[i] != '"' {
			if s[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(s) {
			break
		}
		value, err := strconv.Unquote(s[:i+1])
		if err != nil {
			break
		}
		s = s[i+1:]
		out[key] = value
	}
	return out
}
