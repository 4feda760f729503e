package sqlitestream

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/hgye/sqlitestream/internal/sqlitestream/schemahelper"
)

// Config holds decoder-wide tunables, built from functional options.
type Config struct {
	MaxBufferSize int
	ChunkSizeHint int
	Logger        *slog.Logger
	RunID         string
	Helper        SchemaHelper
}

// Option configures a Decoder at construction time.
type Option func(*Config)

// WithMaxBufferSize sets the hard ceiling on bytes held in the walker's
// buffered-pages map plus in-flight overflow queues. Exceeding it is fatal
// (BudgetExceeded); there is no eviction.
func WithMaxBufferSize(n int) Option {
	return func(c *Config) { c.MaxBufferSize = n }
}

// WithChunkSizeHint sets the preferred read size for NewFromReader. It does
// not affect correctness; the chunk reader accepts any chunk size.
func WithChunkSizeHint(n int) Option {
	return func(c *Config) { c.ChunkSizeHint = n }
}

// WithLogger attaches a structured logger used for run-level diagnostics
// (page counts, skipped pointer-map pages, overflow chain lengths).
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithSchemaHelper overrides the default sqlparser-backed schema helper
// (spec §6.3) — useful for tests that want to stub column metadata without
// constructing real CREATE TABLE SQL.
func WithSchemaHelper(h SchemaHelper) Option {
	return func(c *Config) { c.Helper = h }
}

// defaultConfig mirrors the teacher's DefaultDatabaseConfig pattern: a
// constructor returning sane defaults before options are applied.
func defaultConfig() *Config {
	return &Config{
		MaxBufferSize: 64 * 1024 * 1024,
		ChunkSizeHint: 32 * 1024,
		Logger:        slog.Default(),
		RunID:         uuid.NewString(),
		Helper:        schemahelper.New(),
	}
}

func newConfig(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
