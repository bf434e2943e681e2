package cli

import (
	"reflect"
	"testing"

	"github.com/zoobzio/facet"
)

func TestParseArgs_Get(t *testing.T) {
	cfg, err := ParseArgs([]string{"get", "-f", "doc.json", "orders[0].sku"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if cfg.Command != CommandGet || cfg.File != "doc.json" || cfg.Path != "orders[0].sku" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

func TestParseArgs_Set(t *testing.T) {
	cfg, err := ParseArgs([]string{"set", "--file", "doc.yaml", "--strict", "--json", "-o", "out.yaml", "a.b", "[1,2]"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !cfg.Strict || !cfg.JSONValue || cfg.Output != "out.yaml" {
		t.Fatalf("unexpected flags: %#v", cfg)
	}
	if cfg.Path != "a.b" || cfg.Value != "[1,2]" {
		t.Fatalf("unexpected arguments: %#v", cfg)
	}
}

func TestParseArgs_Walk(t *testing.T) {
	cfg, err := ParseArgs([]string{"walk", "-f", "doc.bson", "--exclude", "secret, token", "--nulls", "--max-nodes", "50"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Exclude, []string{"secret", "token"}) {
		t.Fatalf("Exclude = %v", cfg.Exclude)
	}
	if !cfg.Nulls || cfg.MaxNodes != 50 || cfg.MaxSize != 0 {
		t.Fatalf("unexpected flags: %#v", cfg)
	}
	if cfg.OutputFormat("bson") != FormatJSON {
		t.Errorf("walk should default to JSON output")
	}
}

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs([]string{"walk", "-f", "doc.json"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if cfg.MaxNodes != facet.DefaultMaxNodes {
		t.Errorf("MaxNodes = %d, want %d", cfg.MaxNodes, facet.DefaultMaxNodes)
	}
}

func TestParseArgs_Version(t *testing.T) {
	cfg, err := ParseArgs([]string{"--version"})
	if err != nil {
		t.Fatalf("ParseArgs() error = %v", err)
	}
	if !cfg.ShowVersion {
		t.Error("ShowVersion should be set")
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := [][]string{
		{},
		{"explode", "-f", "x.json"},
		{"get", "a.b"},
		{"get", "-f", "x.json"},
		{"set", "-f", "x.json", "a.b"},
		{"convert", "-f", "x.json"},
		{"convert", "-f", "x.json", "--to", "toml"},
		{"walk", "-f", "x.json", "--max-nodes", "0"},
		{"walk", "-f", "x.json", "--max-size", "-1"},
		{"get", "-f", "x.json", "--format", "csv", "a"},
		{"get", "-f", "x.json", "--bogus", "a"},
	}

	for _, args := range cases {
		if _, err := ParseArgs(args); err == nil {
			t.Errorf("ParseArgs(%q) expected error, got nil", args)
		}
	}
}

func TestFormatOf(t *testing.T) {
	tests := map[string]string{
		"a.json":     FormatJSON,
		"b.YAML":     FormatYAML,
		"c.yml":      FormatYAML,
		"d.msgpack":  FormatMsgpack,
		"e.mp":       FormatMsgpack,
		"f.xml":      FormatXML,
		"dir/g.bson": FormatBSON,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		if err != nil || got != want {
			t.Errorf("FormatOf(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := FormatOf("notes.txt"); err == nil {
		t.Error("FormatOf(.txt) expected error")
	}
}

func TestCodecFor(t *testing.T) {
	want := map[string]string{
		FormatJSON:    "application/json",
		FormatYAML:    "application/yaml",
		FormatMsgpack: "application/msgpack",
		FormatXML:     "application/xml",
		FormatBSON:    "application/bson",
	}
	for name, ct := range want {
		c, err := CodecFor(name)
		if err != nil {
			t.Fatalf("CodecFor(%q) error = %v", name, err)
		}
		if c.ContentType() != ct {
			t.Errorf("CodecFor(%q).ContentType() = %q, want %q", name, c.ContentType(), ct)
		}
	}
}
