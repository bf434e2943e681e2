package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zoobzio/facet"
)

// Usage describes the command line.
const Usage = `usage:
  facet get     -f FILE [--format F] PATH
  facet set     -f FILE [--format F] [--strict] [--json] [-o OUT] PATH VALUE
  facet convert -f FILE [--format F] --to F [-o OUT]
  facet walk    -f FILE [--format F] [--max-nodes N] [--max-size B] [--exclude a,b] [--nulls] [--fingerprint] [--to F] [-o OUT]
  facet --version`

// ParseArgs parses command line arguments into Config.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	if len(args) == 0 {
		return nil, fmt.Errorf("missing command\n%s", Usage)
	}
	if args[0] == "--version" || args[0] == "-v" {
		cfg.ShowVersion = true
		return cfg, nil
	}

	cfg.Command = args[0]
	var excludeRaw string

	fs := pflag.NewFlagSet("facet "+cfg.Command, pflag.ContinueOnError)
	fs.StringVarP(&cfg.File, "file", "f", "", "input document")
	fs.StringVar(&cfg.Format, "format", "", "input format (json, yaml, msgpack, xml, bson)")

	switch cfg.Command {
	case CommandGet:
	case CommandSet:
		fs.BoolVar(&cfg.Strict, "strict", false, "require the value to be assignable without conversion")
		fs.BoolVar(&cfg.JSONValue, "json", false, "parse VALUE as JSON")
		fs.StringVarP(&cfg.Output, "output", "o", "", "output file")
	case CommandConvert:
		fs.StringVar(&cfg.To, "to", "", "output format")
		fs.StringVarP(&cfg.Output, "output", "o", "", "output file")
	case CommandWalk:
		fs.IntVar(&cfg.MaxNodes, "max-nodes", facet.DefaultMaxNodes, "stop after this many nodes")
		fs.IntVar(&cfg.MaxSize, "max-size", 0, "stop past this estimated size in bytes, 0 for no bound")
		fs.StringVar(&excludeRaw, "exclude", "", "comma-separated names to skip")
		fs.BoolVar(&cfg.Nulls, "nulls", false, "keep nil leaves")
		fs.BoolVar(&cfg.Fingerprint, "fingerprint", false, "print the snapshot fingerprint instead of the tree")
		fs.StringVar(&cfg.To, "to", "", "output format")
		fs.StringVarP(&cfg.Output, "output", "o", "", "output file")
	default:
		return nil, fmt.Errorf("unknown command %q\n%s", cfg.Command, Usage)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.File) == "" {
		return nil, fmt.Errorf("--file is required")
	}

	rest := fs.Args()
	switch cfg.Command {
	case CommandGet:
		if len(rest) != 1 {
			return nil, fmt.Errorf("get takes exactly one PATH")
		}
		cfg.Path = rest[0]
	case CommandSet:
		if len(rest) != 2 {
			return nil, fmt.Errorf("set takes PATH and VALUE")
		}
		cfg.Path, cfg.Value = rest[0], rest[1]
	case CommandConvert:
		if strings.TrimSpace(cfg.To) == "" {
			return nil, fmt.Errorf("--to is required")
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("convert takes no arguments")
		}
	case CommandWalk:
		if cfg.MaxNodes <= 0 {
			return nil, fmt.Errorf("--max-nodes must be positive")
		}
		if cfg.MaxSize < 0 {
			return nil, fmt.Errorf("--max-size must not be negative")
		}
		if len(rest) != 0 {
			return nil, fmt.Errorf("walk takes no arguments")
		}
		cfg.Exclude = splitCommaList(excludeRaw)
	}

	for _, f := range []string{cfg.Format, cfg.To} {
		if f != "" && !IsFormat(f) {
			return nil, fmt.Errorf("unknown format %q", f)
		}
	}
	return cfg, nil
}

func splitCommaList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
