// Package api exposes the query-builder core over HTTP so any front end can
// drive it: catalog browsing, per-session model mutations, SQL preview,
// execution and saved templates.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marcinkonwiak/projekt-technologie-obiektowe/catalog"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/logger"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/query"
	qerrors "github.com/marcinkonwiak/projekt-technologie-obiektowe/query/errors"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/session"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/store"
	"github.com/marcinkonwiak/projekt-technologie-obiektowe/types"
)

// Handler serves the query-builder API
type Handler struct {
	catalog   *catalog.Catalog
	sessions  *session.Registry
	templates *store.TemplateStore
}

// NewHandler creates the API handler. templates may be nil when template
// persistence is disabled.
func NewHandler(cat *catalog.Catalog, sessions *session.Registry, templates *store.TemplateStore) *Handler {
	return &Handler{catalog: cat, sessions: sessions, templates: templates}
}

// RegisterRoutes mounts the API under /api
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/tables", h.ListTables)
		r.Get("/tables/{table}", h.DescribeTable)
		r.Post("/catalog/refresh", h.RefreshCatalog)

		r.Post("/sessions", h.CreateSession)
		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)
			r.Post("/tables", h.AddTable)
			r.Delete("/tables/{alias}", h.RemoveTable)
			r.Post("/columns", h.AddColumn)
			r.Post("/joins", h.AddJoin)
			r.Delete("/joins", h.RemoveJoin)
			r.Post("/filters", h.AddFilter)
			r.Delete("/filters/{index}", h.RemoveFilter)
			r.Put("/group", h.SetGroup)
			r.Put("/order", h.SetOrder)
			r.Put("/limit", h.SetLimit)
			r.Get("/sql", h.CompileSQL)
			r.Post("/execute", h.Execute)
			r.Post("/save", h.SaveTemplate)
			r.Post("/load", h.LoadTemplate)
		})

		r.Get("/templates", h.ListTemplates)
		r.Delete("/templates/{name}", h.DeleteTemplate)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type tableResponse struct {
	Name        string               `json:"name"`
	Columns     []catalog.Column     `json:"columns"`
	ForeignKeys []catalog.ForeignKey `json:"foreign_keys"`
}

// ListTables returns the table names of the current catalog snapshot
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	for name := range h.catalog.ListTables() {
		names = append(names, name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": names})
}

// DescribeTable returns columns and foreign keys of one table
func (h *Handler) DescribeTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	columns, err := h.catalog.Describe(name)
	if err != nil {
		writeError(w, err)
		return
	}
	fks, err := h.catalog.ForeignKeysOf(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tableResponse{Name: name, Columns: columns, ForeignKeys: fks})
}

// RefreshCatalog re-introspects the database schema
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": h.catalog.Current().Len()})
}

// CreateSession starts a new query-building session
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	logger.InfoContext(r.Context(), "session created", "session_id", s.ID.String())
	writeJSON(w, http.StatusCreated, map[string]string{"id": s.ID.String()})
}

// CloseSession discards a session
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

type addTableRequest struct {
	Table string `json:"table"`
}

// AddTable binds a table into the session's query
func (h *Handler) AddTable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req addTableRequest
	if !decode(w, r, &req) {
		return
	}
	alias, err := s.Model.AddTable(req.Table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"alias": alias})
}

// RemoveTable unbinds a table, cascading over everything that references it
func (h *Handler) RemoveTable(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Model.RemoveTable(chi.URLParam(r, "alias")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type columnRequest struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Aggregate string `json:"aggregate,omitempty"`
}

func (req columnRequest) ref() query.ColumnRef {
	return query.ColumnRef{
		Table:     req.Table,
		Column:    req.Column,
		Aggregate: types.AggregateFunc(req.Aggregate),
	}
}

// AddColumn appends a column to the SELECT list
func (h *Handler) AddColumn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req columnRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.Model.AddColumn(req.ref()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	Left       string                `json:"left"`
	Right      string                `json:"right"`
	Kind       string                `json:"kind"`
	Conditions []query.JoinCondition `json:"conditions"`
}

// AddJoin authors an explicit join between two bound tables
func (h *Handler) AddJoin(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.Model.AddJoin(query.JoinEdge{
		Left:       req.Left,
		Right:      req.Right,
		Kind:       query.JoinKind(req.Kind),
		Conditions: req.Conditions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveJoin removes the join between the two aliases given as query params
func (h *Handler) RemoveJoin(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Model.RemoveJoin(r.URL.Query().Get("left"), r.URL.Query().Get("right")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type filterRequest struct {
	Column   columnRequest `json:"column"`
	Operator string        `json:"operator"`
	Values   []string      `json:"values,omitempty"`
	Conj     string        `json:"conj,omitempty"`
}

// AddFilter appends a filter predicate. Clients may send != for inequality;
// it is normalized to <>.
func (h *Handler) AddFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if !decode(w, r, &req) {
		return
	}
	op := req.Operator
	if op == "!=" {
		op = string(query.OpNotEq)
	}
	err := s.Model.AddFilter(query.FilterPredicate{
		Column:   req.Column.ref(),
		Operator: query.FilterOperator(op),
		Values:   req.Values,
		Conj:     query.Conjunction(req.Conj),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFilter removes the predicate at the path index
func (h *Handler) RemoveFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid filter index"})
		return
	}
	if err := s.Model.RemoveFilter(idx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type groupRequest struct {
	Columns []columnRequest `json:"columns"`
}

// SetGroup replaces the GROUP BY keys
func (h *Handler) SetGroup(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req groupRequest
	if !decode(w, r, &req) {
		return
	}
	cols := make([]query.ColumnRef, len(req.Columns))
	for i, c := range req.Columns {
		cols[i] = c.ref()
	}
	if err := s.Model.SetGroup(cols); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderRequest struct {
	Entries []orderEntryRequest `json:"entries"`
}

type orderEntryRequest struct {
	Column    *columnRequest `json:"column,omitempty"`
	Ordinal   int            `json:"ordinal,omitempty"`
	Direction string         `json:"direction"`
}

// SetOrder replaces the ORDER BY entries
func (h *Handler) SetOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req orderRequest
	if !decode(w, r, &req) {
		return
	}
	entries := make([]query.OrderEntry, len(req.Entries))
	for i, e := range req.Entries {
		entry := query.OrderEntry{Ordinal: e.Ordinal, Direction: query.Direction(e.Direction)}
		if e.Column != nil {
			ref := e.Column.ref()
			entry.Column = &ref
		}
		entries[i] = entry
	}
	if err := s.Model.SetOrder(entries); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type limitRequest struct {
	Limit *int `json:"limit"`
}

// SetLimit caps (or with null unbounds) the result rows
func (h *Handler) SetLimit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req limitRequest
	if !decode(w, r, &req) {
		return
	}
	var err error
	if req.Limit == nil {
		err = s.Model.ClearLimit()
	} else {
		err = s.Model.SetLimit(*req.Limit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sqlResponse struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// CompileSQL previews the statement the current model compiles to
func (h *Handler) CompileSQL(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	cq, err := s.Compile()
	if err != nil {
		writeError(w, err)
		return
	}
	params := cq.Params
	if params == nil {
		params = []any{}
	}
	writeJSON(w, http.StatusOK, sqlResponse{SQL: cq.SQL, Params: params})
}

type executeResponse struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// Execute compiles and runs the current model, returning all rows
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	rows, err := s.Execute(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	defer rows.Close()

	resp := executeResponse{Columns: rows.Columns(), Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Rows = append(resp.Rows, values)
	}
	if err := rows.Err(); err != nil {
		writeError(w, err)
		return
	}
	resp.Count = len(resp.Rows)
	writeJSON(w, http.StatusOK, resp)
}

type templateRequest struct {
	Name string `json:"name"`
}

// SaveTemplate persists the session's model under a name
func (h *Handler) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.templates == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "template store disabled"})
		return
	}
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "template name required"})
		return
	}
	if err := h.templates.Save(req.Name, s.Template()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadTemplate replaces the session's model with a saved template
func (h *Handler) LoadTemplate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.templates == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "template store disabled"})
		return
	}
	var req templateRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.templates.Load(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.LoadTemplate(t); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTemplates returns the names of all saved templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "template store disabled"})
		return
	}
	names, err := h.templates.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": names})
}

// DeleteTemplate removes a saved template
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "template store disabled"})
		return
	}
	if err := h.templates.Delete(chi.URLParam(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "session"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session id"})
		return nil, false
	}
	s, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", "error", err)
	}
}

// writeError maps core errors onto HTTP statuses: user-fixable model errors
// are 422, missing resources 404, execution failures 502, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	var qe *qerrors.QueryError
	if errors.As(err, &qe) {
		status := http.StatusInternalServerError
		switch qe.Kind() {
		case qerrors.KindValidation, qerrors.KindResolution:
			status = http.StatusUnprocessableEntity
		case qerrors.KindExecution:
			status = http.StatusBadGateway
		}
		if errors.Is(err, qerrors.ErrUnknownTable) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: qe.Error(), Code: qe.Code()})
		return
	}
	if errors.Is(err, store.ErrTemplateNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
