// Package backend selects and opens the storage implementation named in
// the configuration.
package backend

import (
	"context"
	"fmt"
	"strings"

	"cashflow/internal/config"
	"cashflow/internal/ports"
)

// Kind names a storage implementation.
type Kind string

const (
	Memory Kind = "memory"
	SQLite Kind = "sqlite"
)

// Kinds lists every supported storage implementation.
func Kinds() []Kind {
	return []Kind{Memory, SQLite}
}

// ParseKind is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown data backend %q (want one of %v)", s, Kinds())
}

// Options describe the store to open.
type Options struct {
	Kind Kind

	// SQLitePath is the database file; required for SQLite.
	SQLitePath string

	// SeedDir holds seed_projects.txt for the memory store. Empty skips seeding.
	SeedDir string
}

// OptionsFrom derives backend options from the application config.
func OptionsFrom(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("app config is nil")
	}
	kind, err := ParseKind(cfg.DataBackend)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Kind:       kind,
		SQLitePath: cfg.SQLiteDBPath,
		SeedDir:    cfg.DataDir,
	}, nil
}

func (o Options) Validate() error {
	if _, err := ParseKind(string(o.Kind)); err != nil {
		return err
	}
	if o.Kind == SQLite && o.SQLitePath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

// Backend is an opened store together with the hook that releases it.
type Backend struct {
	Kind  Kind
	Store ports.Store
	Close func() error
}

// Opener opens backends.
type Opener interface {
	Open(ctx context.Context, opts Options) (*Backend, error)
}
