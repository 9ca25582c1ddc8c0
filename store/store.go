// Package store persists saved query templates in a local pebble database.
// Templates are stored by name as serialized JSON and round-trip losslessly.
package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
)

// ErrTemplateNotFound is returned when no template exists under a name
var ErrTemplateNotFound = errors.New("template not found")

const templatePrefix = "template/"

// TemplateStore is a named store of saved query templates
type TemplateStore struct {
	db *pebble.DB
}

// Open opens (or creates) the template database at path
func Open(path string) (*TemplateStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open template store: %w", err)
	}
	return &TemplateStore{db: db}, nil
}

// Save writes a template under the given name, overwriting any previous one
func (s *TemplateStore) Save(name string, t *query.Template) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("serialize template %q: %w", name, err)
	}
	if err := s.db.Set(key(name), data, pebble.Sync); err != nil {
		return fmt.Errorf("save template %q: %w", name, err)
	}
	return nil
}

// Load reads the template saved under name
func (s *TemplateStore) Load(name string) (*query.Template, error) {
	data, closer, err := s.db.Get(key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("load template %q: %w", name, err)
	}
	defer closer.Close()

	buf := make([]byte, len(data))
	copy(buf, data)
	return query.UnmarshalTemplate(buf)
}

// Delete removes the template saved under name
func (s *TemplateStore) Delete(name string) error {
	if err := s.db.Delete(key(name), pebble.Sync); err != nil {
		return fmt.Errorf("delete template %q: %w", name, err)
	}
	return nil
}

// List returns the names of all saved templates in key order
func (s *TemplateStore) List() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(templatePrefix),
		UpperBound: []byte(templatePrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, string(iter.Key())[len(templatePrefix):])
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return names, nil
}

// Close closes the underlying database
func (s *TemplateStore) Close() error {
	return s.db.Close()
}

func key(name string) []byte {
	return []byte(templatePrefix + name)
}
