package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zoobzio/facet"
	"github.com/zoobzio/facet/bson"
	"github.com/zoobzio/facet/json"
	"github.com/zoobzio/facet/msgpack"
	"github.com/zoobzio/facet/xml"
	"github.com/zoobzio/facet/yaml"
)

// Supported document formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
	FormatXML     = "xml"
	FormatBSON    = "bson"
)

var extensions = map[string]string{
	".json":    FormatJSON,
	".yaml":    FormatYAML,
	".yml":     FormatYAML,
	".msgpack": FormatMsgpack,
	".mp":      FormatMsgpack,
	".xml":     FormatXML,
	".bson":    FormatBSON,
}

// IsFormat reports whether name is a supported format.
func IsFormat(name string) bool {
	_, err := CodecFor(name)
	return err == nil
}

// CodecFor returns the codec for a format name.
func CodecFor(name string) (facet.Codec, error) {
	switch strings.ToLower(name) {
	case FormatJSON:
		return json.New(), nil
	case FormatYAML, "yml":
		return yaml.New(), nil
	case FormatMsgpack:
		return msgpack.New(), nil
	case FormatXML:
		return xml.New(), nil
	case FormatBSON:
		return bson.New(), nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

// FormatOf infers a format from a file name.
func FormatOf(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("cannot infer format of %q, use --format", path)
}
