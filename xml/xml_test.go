package xml

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/facet"
)

// record exercises encoding/xml passthrough for struct targets.
type record struct {
	ID    string    `xml:"id,attr"`
	Title string    `xml:"title"`
	Count int       `xml:"count"`
	Owner *owner    `xml:"owner"`
	Tags  []string  `xml:"tags>tag"`
	Seen  time.Time `xml:"seen"`
}

type owner struct {
	Name string `xml:"name"`
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/xml" {
		t.Errorf("ContentType() = %q, want application/xml", got)
	}
}

func TestStructRoundTrip(t *testing.T) {
	c := New()
	texts := []string{"plain", "rock & roll", "a < b > c", `say "hi"`, "it's", "日本語", "<![CDATA[x]]>"}

	for _, text := range texts {
		in := record{
			ID:    "r-1",
			Title: text,
			Count: 3,
			Owner: &owner{Name: "Ada"},
			Tags:  []string{"a", "b"},
			Seen:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		}
		data, err := c.Marshal(in)
		if err != nil {
			t.Fatalf("Marshal(%q) error: %v", text, err)
		}
		var out record
		if err := c.Unmarshal(data, &out); err != nil {
			t.Fatalf("Unmarshal(%s) error: %v", data, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("round trip of %q: got %+v, want %+v", text, out, in)
		}
	}
}

func TestStructDecoding(t *testing.T) {
	c := New()
	tests := []struct {
		name  string
		input string
		want  record
	}{
		{"declaration", `<?xml version="1.0" encoding="UTF-8"?><record id="x"><title>t</title></record>`, record{ID: "x", Title: "t"}},
		{"namespace", `<record xmlns="http://example.com"><title>t</title></record>`, record{Title: "t"}},
		{"cdata", `<record><title><![CDATA[<b> & c]]></title></record>`, record{Title: "<b> & c"}},
		{"nested", `<record><owner><name>Ada</name></owner></record>`, record{Owner: &owner{Name: "Ada"}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got record
			if err := c.Unmarshal([]byte(tc.input), &got); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Unmarshal() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	c := New()
	inputs := map[string]string{
		"empty":      "",
		"text":       "just text",
		"unclosed":   "<record><title>t</record>",
		"mismatched": "<record></wrong>",
		"nul byte":   "<record>\x00</record>",
		"bad attr":   "<record id=>x</record>",
		"bad int":    "<record><count>many</count></record>",
		"truncated":  "<record><title>",
		"brace soup": "not xml at all {{{",
	}

	for name, input := range inputs {
		var v record
		err := c.Unmarshal([]byte(input), &v)
		if err == nil {
			t.Errorf("%s: Unmarshal(%q) should fail", name, input)
			continue
		}
		if !errors.Is(err, facet.ErrUnmarshal) {
			t.Errorf("%s: error %v should wrap ErrUnmarshal", name, err)
		}
	}
}

func TestMarshalNil(t *testing.T) {
	c := New()

	data, err := c.Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}
	if string(data) != `<root nil="true"></root>` {
		t.Errorf("Marshal(nil) = %q", data)
	}

	var v any = "placeholder"
	if err := c.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if v != nil {
		t.Errorf("Unmarshal(nil document) = %#v, want nil", v)
	}
}

// --- Generic tree tests ---

func TestMarshalTree(t *testing.T) {
	c := New()

	obj := facet.NewObject()
	obj.Set("name", "Ada")
	obj.Set("age", int64(36))
	obj.Set("tags", []any{"x"})
	obj.Set("first name", "Ada")
	obj.Set("manager", nil)

	data, err := c.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	want := `<root type="object"><name>Ada</name><age type="int">36</age>` +
		`<tags type="list"><item>x</item></tags><entry key="first name">Ada</entry>` +
		`<manager nil="true"></manager></root>`
	if string(data) != want {
		t.Errorf("Marshal() = %s\nwant %s", data, want)
	}
}

func TestTreeRoundTrip(t *testing.T) {
	c := New()

	when := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	inner := facet.NewObject()
	inner.Set("ok", true)
	inner.Set("ratio", 0.25)

	obj := facet.NewObject()
	obj.Set("zeta", int64(-3))
	obj.Set("count", uint64(9))
	obj.Set("when", when)
	obj.Set("blob", []byte{0, 1, 2})
	obj.Set("text", "a < b & c")
	obj.Set("empty", "")
	obj.Set("list", []any{})
	obj.Set("inner", inner)
	obj.Set("xmlish", "reserved prefix")

	data, err := c.Marshal(obj)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var back facet.Object
	if err := c.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if got, want := back.Keys(), obj.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	for _, key := range []string{"zeta", "count", "blob", "text", "empty", "list", "xmlish"} {
		got, _ := back.Get(key)
		want, _ := obj.Get(key)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %#v, want %#v", key, got, want)
		}
	}
	if v, _ := back.Get("when"); !v.(time.Time).Equal(when) {
		t.Errorf("when = %v, want %v", v, when)
	}
	v, _ := back.Get("inner")
	in, ok := v.(*facet.Object)
	if !ok {
		t.Fatalf("inner = %T, want *facet.Object", v)
	}
	if r, _ := in.Get("ratio"); r != 0.25 {
		t.Errorf("ratio = %#v, want 0.25", r)
	}
	if ok, _ := in.Get("ok"); ok != true {
		t.Errorf("ok = %#v, want true", ok)
	}
}

func TestUnmarshalUntypedTree(t *testing.T) {
	c := New()

	input := `<order><id>7</id><line>a</line><line>b</line><tags><item>x</item><item>y</item></tags></order>`

	var tree any
	if err := c.Unmarshal([]byte(input), &tree); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	obj := tree.(*facet.Object)

	if id, _ := obj.Get("id"); id != "7" {
		t.Errorf("id = %#v, want \"7\"", id)
	}
	if lines, _ := obj.Get("line"); !reflect.DeepEqual(lines, []any{"a", "b"}) {
		t.Errorf("line = %#v, want [a b]", lines)
	}
	if tags, _ := obj.Get("tags"); !reflect.DeepEqual(tags, []any{"x", "y"}) {
		t.Errorf("tags = %#v, want [x y]", tags)
	}
}

func TestUnmarshalTree_Invalid(t *testing.T) {
	c := New()

	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"two roots", "<a></a><b></b>"},
		{"bad int", `<root type="object"><n type="int">x</n></root>`},
		{"unknown type", `<root type="complex">1</root>`},
		{"unclosed", "<root><name>"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var v any
			err := c.Unmarshal([]byte(tc.input), &v)
			if err == nil {
				t.Fatalf("Unmarshal(%q) should return error", tc.input)
			}
			if !errors.Is(err, facet.ErrUnmarshal) {
				t.Errorf("Unmarshal(%q) error = %v, want ErrUnmarshal", tc.input, err)
			}
		})
	}
}

func TestMarshalScalarTree(t *testing.T) {
	c := New()

	data, err := c.Marshal(int64(5))
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `type="int"`) {
		t.Errorf("Marshal(5) = %s, missing type attribute", data)
	}

	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if v != int64(5) {
		t.Errorf("Unmarshal() = %#v, want int64(5)", v)
	}
}
