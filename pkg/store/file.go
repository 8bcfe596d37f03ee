package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/fadeout"
	"github.com/matzehuels/sceneguard/pkg/overlap"
)

// FileStore keeps runs as JSON files:
//
//	<dir>/runs/<id>.json        the run
//	<dir>/events/<id>.json      its events, as one array
//	<dir>/removals/<id>.jsonl   its removal reports, one per line
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates the directory layout under dir.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"runs", "events", "removals"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the base directory.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) path(kind, id, ext string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid run id %q", id)
	}
	return filepath.Join(s.dir, kind, id+ext), nil
}

func (s *FileStore) SaveRun(_ context.Context, r Run) error {
	p, err := s.path("runs", r.ID, ".json")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(p, r)
}

func (s *FileStore) GetRun(_ context.Context, id string) (Run, error) {
	p, err := s.path("runs", id, ".json")
	if err != nil {
		return Run{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var r Run
	if err := readJSON(p, &r); err != nil {
		if os.IsNotExist(err) {
			return Run{}, runNotFound(id)
		}
		return Run{}, err
	}
	return r, nil
}

func (s *FileStore) ListRuns(_ context.Context, limit int) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := os.ReadDir(filepath.Join(s.dir, "runs"))
	if err != nil {
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []RunInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		var r Run
		if err := readJSON(filepath.Join(s.dir, "runs", e.Name()), &r); err != nil {
			continue
		}
		out = append(out, r.Info())
	}
	return newestFirst(out, limit), nil
}

func (s *FileStore) DeleteRun(_ context.Context, id string) error {
	p, err := s.path("runs", id, ".json")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return runNotFound(id)
		}
		return err
	}
	for _, extra := range [][2]string{{"events", ".json"}, {"removals", ".jsonl"}} {
		q, _ := s.path(extra[0], id, extra[1])
		if err := os.Remove(q); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *FileStore) SaveEvent(_ context.Context, runID string, ev overlap.Event) error {
	p, err := s.path("events", runID, ".json")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var evs []overlap.Event
	if err := readJSON(p, &evs); err != nil && !os.IsNotExist(err) {
		return err
	}
	if i := slices.IndexFunc(evs, func(e overlap.Event) bool { return e.ID == ev.ID }); i >= 0 {
		evs[i] = ev
	} else {
		evs = append(evs, ev)
	}
	return writeJSON(p, evs)
}

func (s *FileStore) Events(_ context.Context, runID string) ([]overlap.Event, error) {
	p, err := s.path("events", runID, ".json")
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var evs []overlap.Event
	if err := readJSON(p, &evs); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return evs, nil
}

func (s *FileStore) AppendRemoval(_ context.Context, runID string, r fadeout.Report) error {
	p, err := s.path("removals", runID, ".jsonl")
	if err != nil {
		return err
	}
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *FileStore) Removals(_ context.Context, runID string) ([]fadeout.Report, error) {
	p, err := s.path("removals", runID, ".jsonl")
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []fadeout.Report
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r fadeout.Report
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("parse removal report: %w", err)
		}
		out = append(out, r)
	}
	return out, sc.Err()
}

func (s *FileStore) Close() error { return nil }

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON writes v through a temp file so readers never see a partial file.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ Store = (*FileStore)(nil)
