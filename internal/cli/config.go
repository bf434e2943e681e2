package cli

// Command names.
const (
	CommandGet     = "get"
	CommandSet     = "set"
	CommandConvert = "convert"
	CommandWalk    = "walk"
)

// Config stores CLI options for a single run.
type Config struct {
	Command string

	// File is the input document; Format overrides the format inferred
	// from its extension.
	File   string
	Format string

	// To is the output format of convert and walk. Empty keeps the input
	// format for set and uses JSON for walk.
	To string

	// Output is the file written by set, convert and walk. Empty writes to
	// the runner's output stream.
	Output string

	Path      string
	Value     string
	JSONValue bool
	Strict    bool

	MaxNodes    int
	MaxSize     int
	Exclude     []string
	Nulls       bool
	Fingerprint bool

	ShowVersion bool
}

// OutputFormat returns the format documents are written in.
func (c *Config) OutputFormat(input string) string {
	if c.To != "" {
		return c.To
	}
	if c.Command == CommandWalk {
		return FormatJSON
	}
	return input
}
