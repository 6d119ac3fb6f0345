package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/san-kum/modsim/internal/dynamo"
)

// FileStore keeps one directory per run holding metadata.json and
// result.csv.
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Init(ctx context.Context) error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) Save(ctx context.Context, meta Metadata, result dynamo.Result) error {
	if meta.ID == "" {
		return fmt.Errorf("run has no id")
	}
	meta = complete(meta, result)

	// nothing is written until both files encode
	var metaBuf, csvBuf bytes.Buffer
	enc := json.NewEncoder(&metaBuf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := WriteCSV(&csvBuf, result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), metaBuf.Bytes(), 0644); err != nil {
		_ = os.RemoveAll(runDir)
		return err
	}
	if err := os.WriteFile(filepath.Join(runDir, "result.csv"), csvBuf.Bytes(), 0644); err != nil {
		_ = os.RemoveAll(runDir)
		return err
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(ctx, entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, "metadata.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *FileStore) LoadResult(ctx context.Context, id string) (dynamo.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, id, "result.csv"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}
