// Package storage persists simulation results.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/dynamo"
)

var ErrNotFound = errors.New("run not found")

// Metadata describes one stored run.
type Metadata struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Mode      string           `json:"mode"`
	Report    string           `json:"report"`
	Timestamp time.Time        `json:"timestamp"`
	Elapsed   time.Duration    `json:"elapsed_ns"`
	Rows      int              `json:"rows"`
	Columns   []string         `json:"columns"`
	Metrics   Metrics          `json:"metrics,omitempty"`
	Scenario  *config.Scenario `json:"scenario,omitempty"`
}

type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, meta Metadata, result dynamo.Result) error
	// List returns every run, oldest first.
	List(ctx context.Context) ([]Metadata, error)
	Load(ctx context.Context, id string) (*Metadata, error)
	LoadResult(ctx context.Context, id string) (dynamo.Result, error)
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns an initialised store of the given kind rooted at dir.
func Open(ctx context.Context, kind, dir string) (Store, error) {
	var s Store
	switch kind {
	case KindFile, "":
		s = NewFileStore(dir)
	case KindSQLite:
		s = NewSQLiteStore(dir)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// complete fills the fields derived from the result.
func complete(meta Metadata, result dynamo.Result) Metadata {
	meta.Rows = result.Len()
	meta.Columns = result.Columns()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	return meta
}
