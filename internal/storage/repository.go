// Package storage defines the backend-agnostic interface used to persist
// finalized tables, plus the factory registry the backends register with.
//
// The flattening output has a peculiar shape for SQL storage: the column set
// is not known up front, it grows as documents introduce new columns. The
// Repository interface therefore exposes explicit EnsureTable/AddColumns
// steps alongside row insertion, and every backend implements "widen the
// table as the union grows" in its own dialect.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"sync"
)

// Config is the minimal configuration needed to construct a repository.
type Config struct {
	// Kind selects the registered backend ("sqlite", "postgres", "mssql").
	Kind string
	// DSN is passed through to the backend factory; validation is
	// backend-specific.
	DSN string
}

// Repository is the backend-agnostic sink for flattened tables.
//
// IMPORTANT: column *values* arrive as the record export types
// (nil/string/int64/float64). Backends without dynamic typing store
// text columns and format the scalars; nil is always SQL NULL.
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTable creates the table with the given columns if it does not
	// exist. Idempotent.
	EnsureTable(ctx context.Context, table string, columns []string) error

	// AddColumns widens an existing table with the given columns. Columns
	// that already exist are skipped.
	AddColumns(ctx context.Context, table string, columns []string) error

	// InsertRows appends rows; each row is aligned to columns. Backends may
	// batch internally but must preserve row order.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init() function
// in a backend package.
//
// Panics:
//   - If kind is empty, f is nil, or kind is already registered. Failing
//     fast avoids ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - cfg.Kind empty or not registered.
//   - Whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Column paths contain "-", "@", "/" and other characters that are legal in
// our naming scheme but need quoting as SQL identifiers. ValidColumn bounds
// what we accept at all, so quoting stays safe in every dialect.
var validColumn = regexp.MustCompile(`^[a-zA-Z0-9 _@/:\[\]#.-]+$`)

// ValidColumn reports whether a column path may be used as a (quoted) SQL
// identifier.
func ValidColumn(name string) bool {
	return name != "" && validColumn.MatchString(name)
}

// CheckColumns returns an error naming the first invalid column, if any.
func CheckColumns(columns []string) error {
	for _, c := range columns {
		if !ValidColumn(c) {
			return fmt.Errorf("storage: %q is not a valid column name", c)
		}
	}
	return nil
}
