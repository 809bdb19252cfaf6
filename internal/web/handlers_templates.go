package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/glossary/internal/web/templates"
)

func (s *Server) handleGlossaryPage(w http.ResponseWriter, r *http.Request) {
	scope := scopeParam(r)
	filter := listFilter(r)

	entries, err := s.service.List(r.Context(), scope, filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	selected, _ := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.GlossaryPage(templates.GlossaryPageData{
		Scope:    scope,
		Entries:  entries,
		Search:   filter.Search,
		Letter:   filter.Letter,
		Selected: selected,
	})
	if err := page.Render(r.Context(), w); err != nil {
		respondServiceError(w, r, fmt.Errorf("render glossary page: %w", err))
	}
}
