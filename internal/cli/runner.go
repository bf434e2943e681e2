package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zoobzio/facet"
	"github.com/zoobzio/facet/json"
)

// Runner executes one CLI command.
type Runner interface {
	Run(ctx context.Context, cfg *Config) error
}

type runnerImpl struct {
	out io.Writer
}

// NewRunner creates a runner writing results to out.
func NewRunner(out io.Writer) Runner {
	return &runnerImpl{out: out}
}

// Run reads the input document and dispatches on the command.
func (r *runnerImpl) Run(ctx context.Context, cfg *Config) error {
	format := cfg.Format
	if format == "" {
		f, err := FormatOf(cfg.File)
		if err != nil {
			return err
		}
		format = f
	}

	tree, err := readDocument(cfg.File, format)
	if err != nil {
		return err
	}

	switch cfg.Command {
	case CommandGet:
		return r.get(tree, cfg)
	case CommandSet:
		return r.set(tree, cfg, format)
	case CommandConvert:
		return r.write(tree, cfg, cfg.OutputFormat(format))
	case CommandWalk:
		return r.walk(ctx, tree, cfg)
	}
	return fmt.Errorf("unknown command %q", cfg.Command)
}

func readDocument(path, format string) (any, error) {
	codec, err := CodecFor(format)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var tree any
	if err := codec.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tree, nil
}

func (r *runnerImpl) get(tree any, cfg *Config) error {
	v, err := facet.Get(tree, cfg.Path)
	if err != nil {
		return err
	}
	if s, ok := v.(string); ok {
		_, err = fmt.Fprintln(r.out, s)
		return err
	}
	data, err := json.New().Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(r.out, string(data))
	return err
}

func (r *runnerImpl) set(tree any, cfg *Config, format string) error {
	var value any = cfg.Value
	if cfg.JSONValue {
		v, err := facet.ParseJSON([]byte(cfg.Value))
		if err != nil {
			return fmt.Errorf("parse value: %w", err)
		}
		value = v
	}
	if err := facet.Set(&tree, cfg.Path, value, cfg.Strict); err != nil {
		return err
	}
	return r.write(tree, cfg, cfg.OutputFormat(format))
}

func (r *runnerImpl) walk(ctx context.Context, tree any, cfg *Config) error {
	w := facet.NewWalker(
		facet.WithMaxNodes(cfg.MaxNodes),
		facet.WithMaxSize(cfg.MaxSize),
		facet.WithExclude(cfg.Exclude...),
		facet.WithNulls(cfg.Nulls),
	)
	snap, err := w.Walk(ctx, tree)
	if err != nil {
		return err
	}
	if cfg.Fingerprint {
		fp, err := snap.Fingerprint()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.out, fp)
		return err
	}
	return r.write(snap.Root, cfg, cfg.OutputFormat(""))
}

// write encodes v and sends it to the configured output file or stream.
func (r *runnerImpl) write(v any, cfg *Config, format string) error {
	codec, err := CodecFor(format)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	_, err = r.out.Write(data)
	return err
}
