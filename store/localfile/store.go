// Package localfile is the JSON-file storage backend used when no remote store
// is configured. The whole document is read, modified and rewritten on every
// mutation.
package localfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/jrsteele09/go-movie-server/store"
	"github.com/pkg/errors"
)

var _ store.Backend = (*Store)(nil)

// keyFields names the identity field of each supported table.
var keyFields = map[string]string{
	store.TableUsers:    "username",
	store.TableSessions: "token",
}

type document struct {
	Users    []store.Row `json:"users"`
	Sessions []store.Row `json:"sessions"`
}

func (d *document) table(name string) (*[]store.Row, error) {
	switch name {
	case store.TableUsers:
		return &d.Users, nil
	case store.TableSessions:
		return &d.Sessions, nil
	}
	return nil, errors.Wrap(store.ErrUnknownTable, name)
}

// Store is a store.Backend persisted as a single JSON document. Writers are
// serialised in-process by a mutex and across processes by a lock file, and
// the document is replaced atomically.
type Store struct {
	path string
	mu   sync.RWMutex
	lock *flock.Flock
}

// New creates a store for the document at path. The file and its directory
// are created on first write.
func New(path string) *Store {
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Find returns a copy of the first row whose key field equals key.
func (s *Store) Find(_ context.Context, table, key string) (store.Row, bool, error) {
	field, ok := keyFields[table]
	if !ok {
		return nil, false, errors.Wrap(store.ErrUnknownTable, table)
	}
	var found store.Row
	err := s.read(func(doc *document) error {
		rows, err := doc.table(table)
		if err != nil {
			return err
		}
		for _, row := range *rows {
			if fmt.Sprint(row[field]) == key {
				found = row
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return found, found != nil, nil
}

// UpdateByKey shallow-merges patch onto the row whose key field equals key.
// It reports false, without error, when no such row exists.
func (s *Store) UpdateByKey(ctx context.Context, table, key string, patch store.Row) (store.Row, bool, error) {
	field, ok := keyFields[table]
	if !ok {
		return nil, false, errors.Wrap(store.ErrUnknownTable, table)
	}
	rows, err := s.Update(ctx, table, patch, store.Filters{field: key})
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}

// DeleteWhere removes every row of table for which match returns true and
// reports how many were removed.
func (s *Store) DeleteWhere(_ context.Context, table string, match func(store.Row) bool) (int, error) {
	removed := 0
	err := s.mutate(func(doc *document) error {
		rows, err := doc.table(table)
		if err != nil {
			return err
		}
		kept := make([]store.Row, 0, len(*rows))
		for _, row := range *rows {
			if match(row) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		*rows = kept
		return nil
	})
	return removed, err
}

// Select returns copies of the rows matching q.
func (s *Store) Select(_ context.Context, table string, q store.Query) ([]store.Row, error) {
	result := []store.Row{}
	err := s.read(func(doc *document) error {
		rows, err := doc.table(table)
		if err != nil {
			return err
		}
		for _, row := range *rows {
			if !q.Filters.Matches(row) {
				continue
			}
			result = append(result, project(row, q.Columns))
			if q.Limit > 0 && len(result) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Insert appends copies of rows and returns copies of what was stored. A row
// whose key field is already taken fails the whole call with a 409
// store.RequestError and nothing is written.
func (s *Store) Insert(_ context.Context, table string, rows ...store.Row) ([]store.Row, error) {
	stored := make([]store.Row, 0, len(rows))
	err := s.mutate(func(doc *document) error {
		target, err := doc.table(table)
		if err != nil {
			return err
		}
		field := keyFields[table]
		taken := make(map[string]bool, len(*target))
		for _, row := range *target {
			if v, ok := row[field]; ok && v != nil {
				taken[fmt.Sprint(v)] = true
			}
		}
		for _, row := range rows {
			c, err := copyRow(row)
			if err != nil {
				return err
			}
			if v, ok := c[field]; ok && v != nil {
				key := fmt.Sprint(v)
				if taken[key] {
					return &store.RequestError{
						Status:  http.StatusConflict,
						Message: fmt.Sprintf("duplicate %s %q in %s", field, key, table),
					}
				}
				taken[key] = true
			}
			*target = append(*target, c)
			stored = append(stored, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copyRows(stored)
}

// Update shallow-merges patch onto every row matching filters.
func (s *Store) Update(_ context.Context, table string, patch store.Row, filters store.Filters) ([]store.Row, error) {
	patchCopy, err := copyRow(patch)
	if err != nil {
		return nil, err
	}
	updated := []store.Row{}
	err = s.mutate(func(doc *document) error {
		rows, err := doc.table(table)
		if err != nil {
			return err
		}
		for i, row := range *rows {
			if !filters.Matches(row) {
				continue
			}
			merged := make(store.Row, len(row)+len(patchCopy))
			for k, v := range row {
				merged[k] = v
			}
			for k, v := range patchCopy {
				merged[k] = v
			}
			(*rows)[i] = merged
			updated = append(updated, merged)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copyRows(updated)
}

// Delete removes every row matching filters.
func (s *Store) Delete(ctx context.Context, table string, filters store.Filters) error {
	_, err := s.DeleteWhere(ctx, table, filters.Matches)
	return err
}

func (s *Store) read(fn func(*document) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.RLock(); err != nil {
		return errors.Wrap(err, "[localfile.read] lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}

func (s *Store) mutate(fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return errors.Wrap(err, "[localfile.mutate] lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "[localfile] create data directory")
	}
	return nil
}

// load reads the document, treating a missing file as empty and coercing
// malformed collections to empty ones.
func (s *Store) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{Users: []store.Row{}, Sessions: []store.Row{}}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[localfile.load] read")
	}

	var raw map[string]json.RawMessage
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "[localfile.load] parse %s", s.path)
		}
	}
	return &document{
		Users:    normalizeRows(raw["users"]),
		Sessions: normalizeRows(raw["sessions"]),
	}, nil
}

func normalizeRows(raw json.RawMessage) []store.Row {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []store.Row{}
	}
	rows := make([]store.Row, 0, len(items))
	for _, item := range items {
		var row store.Row
		if err := json.Unmarshal(item, &row); err != nil || row == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *Store) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[localfile.save] marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "[localfile.save] create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[localfile.save] write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[localfile.save] close temp file")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[localfile.save] rename temp file")
	}
	return nil
}

func project(row store.Row, columns []string) store.Row {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		c, _ := copyRow(row)
		return c
	}
	out := make(store.Row, len(columns))
	for _, col := range columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	c, _ := copyRow(out)
	return c
}

// copyRow deep-copies a row through its JSON form, which is also the form
// it is persisted in.
func copyRow(row store.Row) (store.Row, error) {
	if row == nil {
		return store.Row{}, nil
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, errors.Wrap(err, "[localfile] copy row")
	}
	var out store.Row
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "[localfile] copy row")
	}
	return out, nil
}

func copyRows(rows []store.Row) ([]store.Row, error) {
	out := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		c, err := copyRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
