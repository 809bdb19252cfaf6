package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/glossary/internal/core"
)

// EntryRequest is the body of create and edit calls.
type EntryRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// EntryResponse adds the page links to an entry.
type EntryResponse struct {
	core.Entry
	URL       string `json:"url"`
	ParentURL string `json:"parentUrl"`
}

func toEntryResponse(e core.Entry) EntryResponse {
	return EntryResponse{Entry: e, URL: e.URL(), ParentURL: e.ParentURL()}
}

func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (EntryRequest, error) {
	var req EntryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, nil
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.List(r.Context(), scopeParam(r), listFilter(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	e, err := s.service.Get(r.Context(), scopeParam(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	req, err := decodeEntryRequest(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	e, err := s.service.Create(r.Context(), actor, scopeParam(r), req.Source, req.Target)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/dictionary/%s/%s/%d",
		url.PathEscape(e.Project), url.PathEscape(e.Language), e.ID))
	writeJSON(w, http.StatusCreated, toEntryResponse(e))
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	req, err := decodeEntryRequest(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	e, err := s.service.Edit(r.Context(), actor, scopeParam(r), id, req.Source, req.Target)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

// handleChanges serves both the global and the per-glossary audit log.
func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.ChangeFilter{
		Project:  q.Get("project"),
		Language: q.Get("language"),
		Action:   core.ChangeAction(q.Get("action")),
		Limit:    intQuery(r, "limit", defaultPageSize),
	}
	if scope := scopeParam(r); scope.Project != "" {
		filter.Project, filter.Language = scope.Project, scope.Language
	}
	if v := q.Get("entry"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondServiceError(w, r, fmt.Errorf("%w: invalid entry id", errBadRequest))
			return
		}
		filter.EntryID = id
	}
	if filter.Action != "" && !filter.Action.Valid() {
		respondServiceError(w, r, fmt.Errorf("%w: unknown action %q", errBadRequest, filter.Action))
		return
	}

	changes, err := s.service.Changes(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if changes == nil {
		changes = []core.Change{}
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats":  s.service.Formats(),
		"policies": []core.Policy{core.PolicyAdd, core.PolicyOverwrite, core.PolicySkip},
	})
}
