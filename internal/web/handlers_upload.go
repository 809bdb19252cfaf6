package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/glossary/internal/core"
	"github.com/JonMunkholm/glossary/internal/logging"
)

// handleUpload imports a multipart "file" into the glossary. The optional
// "method" field selects the policy: add, overwrite or skip.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	actor, err := requestActor(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(w, r, core.ErrFileTooLarge)
			return
		}
		respondServiceError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondServiceError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	scope := scopeParam(r)
	policy := core.Policy(r.FormValue("method"))
	logging.WithFields(r.Context(), "scope", scope.String(), "file", header.Filename).
		Info("upload received", "size", len(data), "method", string(policy))

	result, err := s.service.Upload(r.Context(), actor, scope, header.Filename, data, policy)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
