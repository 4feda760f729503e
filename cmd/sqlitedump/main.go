// Command sqlitedump streams the tables of a SQLite database file to
// stdout without loading it into memory, using the same strictly
// sequential, one-pass decode the library performs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/zeebo/blake3"

	"github.com/hgye/sqlitestream/internal/sqlitestream"
	"github.com/hgye/sqlitestream/internal/sqlitestream/logging"
)

const version = "0.1.0"

// CLI mirrors the teacher's flat, noun-first kong struct (cmd/capsule/main.go
// in the JuniperBible pack): a shared set of global flags plus one command
// struct per subcommand, each implementing Run().
var CLI struct {
	LogLevel  string `enum:"debug,info,warn,error" default:"info" help:"Log verbosity."`
	LogFormat string `enum:"text,json" default:"text" help:"Log output format."`

	Dump    DumpCmd    `cmd:"" help:"Stream every user table's rows to stdout."`
	Info    InfoCmd    `cmd:"" help:"Print run statistics without dumping rows."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("sqlitedump"),
		kong.Description("Streaming, one-pass SQLite table dumper."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// DumpCmd decodes a SQLite file and writes every user table's rows.
type DumpCmd struct {
	Path      string `arg:"" help:"Path to a SQLite database file (use '-' for stdin)." type:"path"`
	Format    string `enum:"console,json" default:"console" help:"Output format."`
	XZ        bool   `help:"Treat the input as xz-compressed."`
	Checksum  bool   `help:"Print a BLAKE3 checksum of the decoded output alongside the dump."`
	MaxBuffer int    `default:"67108864" help:"Max bytes the walker may hold for unresolved forward references."`
}

func (c *DumpCmd) Run() error {
	logger := logging.New(parseLevel(CLI.LogLevel), parseFormat(CLI.LogFormat))

	r, closeFn, err := openInput(c.Path, c.XZ)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer closeFn()

	var out io.Writer = os.Stdout
	var hasher *blake3.Hasher
	if c.Checksum {
		hasher = blake3.New()
		out = io.MultiWriter(os.Stdout, hasher)
	}

	dec := sqlitestream.NewFromReader(r,
		sqlitestream.WithMaxBufferSize(c.MaxBuffer),
		sqlitestream.WithLogger(logger),
	)

	var formatter outputFormatter
	if c.Format == "json" {
		formatter = newJSONFormatter(out)
	} else {
		formatter = newConsoleFormatter(out)
	}

	ctx := context.Background()
	for ts, err := range dec.Tables(ctx) {
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		fmt.Fprint(out, formatter.FormatHeader(ts.Name(), ts.Columns()))
		rows := 0
		for row, err := range ts.Rows(ctx) {
			if err != nil {
				return fmt.Errorf("decode table %q: %w", ts.Name(), err)
			}
			fmt.Fprint(out, formatter.FormatRow(ts.Name(), row, ts.Columns()))
			rows++
		}
		fmt.Fprint(out, formatter.FormatFooter(ts.Name(), rows))
	}

	logger.Info("dump complete",
		"tables", dec.Stats.TablesYielded,
		"rows", dec.Stats.RowsYielded,
		"pages_read", dec.Stats.PagesRead,
		"pages_skipped", dec.Stats.PagesSkipped,
		"overflow_pages", dec.Stats.OverflowPages,
		"peak_bytes_buffered", dec.Stats.PeakBytesBuffered,
	)

	if hasher != nil {
		fmt.Fprintf(os.Stderr, "blake3: %x\n", hasher.Sum(nil))
	}
	return nil
}

// InfoCmd runs the full decode but discards rows, printing only run
// statistics — useful for sanity-checking a file's structure cheaply.
type InfoCmd struct {
	Path string `arg:"" help:"Path to a SQLite database file (use '-' for stdin)." type:"path"`
	XZ   bool   `help:"Treat the input as xz-compressed."`
}

func (c *InfoCmd) Run() error {
	logger := logging.New(parseLevel(CLI.LogLevel), parseFormat(CLI.LogFormat))

	r, closeFn, err := openInput(c.Path, c.XZ)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer closeFn()

	dec := sqlitestream.NewFromReader(r, sqlitestream.WithLogger(logger))

	ctx := context.Background()
	for ts, err := range dec.Tables(ctx) {
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		for _, err := range ts.Rows(ctx) {
			if err != nil {
				return fmt.Errorf("decode table %q: %w", ts.Name(), err)
			}
		}
	}

	fmt.Printf("tables:              %d\n", dec.Stats.TablesYielded)
	fmt.Printf("rows:                %d\n", dec.Stats.RowsYielded)
	fmt.Printf("pages read:          %d\n", dec.Stats.PagesRead)
	fmt.Printf("pages skipped:       %d\n", dec.Stats.PagesSkipped)
	fmt.Printf("overflow pages:      %d\n", dec.Stats.OverflowPages)
	fmt.Printf("peak bytes buffered: %d\n", dec.Stats.PeakBytesBuffered)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("sqlitedump version %s\n", version)
	return nil
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func parseFormat(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
