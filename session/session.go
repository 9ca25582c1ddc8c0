// Package session ties one user's query-building activity together: the
// model being built, the catalog snapshot it validates against, and the
// executor that runs the result. One session serves one user; its mutations
// are driven sequentially by the visual layer.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/compiler"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/executor"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
)

// Session is one user's query-building state
type Session struct {
	ID      uuid.UUID
	Model   *query.Model
	Created time.Time

	catalog *catalog.Catalog
	exec    *executor.Executor
}

// New creates a session with an empty model pinned to the catalog's current
// snapshot
func New(cat *catalog.Catalog, exec *executor.Executor) *Session {
	return &Session{
		ID:      uuid.New(),
		Model:   query.NewModel(cat.Current()),
		Created: time.Now(),
		catalog: cat,
		exec:    exec,
	}
}

// Reset discards the model and starts over on the catalog's current snapshot
func (s *Session) Reset() {
	s.Model = query.NewModel(s.catalog.Current())
}

// Compile renders the current model without executing it
func (s *Session) Compile() (*compiler.CompiledQuery, error) {
	return compiler.Compile(s.Model)
}

// Execute compiles the current model and runs it. Cancelling ctx aborts the
// database call; the model is untouched either way.
func (s *Session) Execute(ctx context.Context) (executor.Rows, error) {
	ctx = logger.WithContextValue(ctx, logger.SessionIDKey, s.ID.String())
	cq, err := s.Compile()
	if err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, cq)
}

// Template captures the model as a saveable template
func (s *Session) Template() *query.Template {
	return s.Model.Template()
}

// LoadTemplate replaces the model with one rebuilt from a saved template,
// validated against the catalog's current snapshot. The existing model is
// kept when the template no longer fits the schema.
func (s *Session) LoadTemplate(t *query.Template) error {
	m, err := query.FromTemplate(s.catalog.Current(), t)
	if err != nil {
		return err
	}
	s.Model = m
	return nil
}
