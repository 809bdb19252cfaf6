package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/glossary/internal/core"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// scopeParam reads the glossary scope from the route.
func scopeParam(r *http.Request) core.Scope {
	return core.Scope{
		Project:  chi.URLParam(r, "project"),
		Language: chi.URLParam(r, "lang"),
	}
}

// requestActor returns the user set by the actor middleware.
func requestActor(r *http.Request) (core.Actor, error) {
	actor, ok := core.ActorFromContext(r.Context())
	if !ok {
		return core.Actor{}, core.ErrNoActor
	}
	return actor, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid entry id", errBadRequest)
	}
	return id, nil
}

// intQuery parses a non-negative integer query parameter.
func intQuery(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func listFilter(r *http.Request) core.ListFilter {
	q := r.URL.Query()
	limit := intQuery(r, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return core.ListFilter{
		Search: q.Get("q"),
		Letter: q.Get("letter"),
		Limit:  limit,
		Offset: intQuery(r, "offset", 0),
	}
}
