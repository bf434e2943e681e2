package facet

// Override interfaces let a type steer reflection-based analysis and walking.
// When a type implements one of these interfaces, the cache or the walker
// consults the method instead of (or in addition to) what reflection finds.

// Markers are type-level declarations merged into a TypeDescriptor.
// They let a type adjust attributes it inherits through embedding, where the
// embedded type's declaration is not under its control.
type Markers struct {
	// Exclude removes the named attributes from the descriptor entirely.
	Exclude []string

	// Transient keeps the named attributes but flags them Transient.
	Transient []string

	// Annotations adds per-attribute annotations, keyed by attribute name.
	Annotations map[string]map[string]string

	// Tags are free-form type annotations exposed as TypeDescriptor.Markers.Tags.
	Tags []string
}

// Marked declares type-level markers. The method is called on the zero value
// of the type, so it must not depend on instance state.
type Marked interface {
	FacetMarkers() Markers
}

// Snapshotter bypasses reflection when walking. The returned value is walked
// in place of the receiver, so it may be a scalar, []any, *Object, or any
// other walkable value.
type Snapshotter interface {
	FacetSnapshot() any
}

// merge folds outer into m; outer declarations come after inner ones so the
// outermost type has the last word on annotations.
func (m Markers) merge(outer Markers) Markers {
	out := Markers{
		Exclude:   append(append([]string{}, m.Exclude...), outer.Exclude...),
		Transient: append(append([]string{}, m.Transient...), outer.Transient...),
		Tags:      appendUnique(append([]string{}, m.Tags...), outer.Tags...),
	}
	if len(m.Annotations) > 0 || len(outer.Annotations) > 0 {
		out.Annotations = make(map[string]map[string]string)
		for _, src := range []map[string]map[string]string{m.Annotations, outer.Annotations} {
			for name, ann := range src {
				dst := out.Annotations[name]
				if dst == nil {
					dst = make(map[string]string, len(ann))
					out.Annotations[name] = dst
				}
				for k, v := range ann {
					dst[k] = v
				}
			}
		}
	}
	return out
}

// HasTag reports whether the type carries the free-form annotation tag.
func (m Markers) HasTag(tag string) bool {
	return contains(m.Tags, tag)
}

func (m Markers) excludes(names ...string) bool {
	for _, n := range names {
		if contains(m.Exclude, n) {
			return true
		}
	}
	return false
}

func (m Markers) transient(names ...string) bool {
	for _, n := range names {
		if contains(m.Transient, n) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, items ...string) []string {
	for _, it := range items {
		if !contains(list, it) {
			list = append(list, it)
		}
	}
	return list
}
