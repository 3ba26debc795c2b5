package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/export"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/util"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleStartScraping(w http.ResponseWriter, r *http.Request) {
	// Reject early so a running job never sees a half-parsed request.
	if s.app.Runner().Running() {
		RespondWithStatus(w, http.StatusConflict, statusError, jobs.ErrAlreadyRunning.Error())
		return
	}

	req, err := parseStartRequest(r)
	if err == nil {
		err = s.app.Runner().Start(req)
	}

	var verr *jobs.ValidationError
	switch {
	case err == nil:
		RespondWithStatus(w, http.StatusOK, statusSuccess, "Extraction started")
	case errors.As(err, &verr):
		RespondWithStatus(w, http.StatusBadRequest, statusError, verr.Error())
	case errors.Is(err, jobs.ErrAlreadyRunning):
		RespondWithStatus(w, http.StatusConflict, statusError, err.Error())
	case errors.Is(err, jobs.ErrClosed):
		RespondWithStatus(w, http.StatusServiceUnavailable, statusError, err.Error())
	default:
		log.Error().Err(err).Msg("Failed to start extraction")
		RespondWithStatus(w, http.StatusInternalServerError, statusError, "Error: "+err.Error())
	}
}

func (s *Server) handleStopScraping(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Runner().Cancel(); err != nil {
		RespondWithStatus(w, http.StatusConflict, statusError, err.Error())
		return
	}
	RespondWithStatus(w, http.StatusOK, statusSuccess, "Stop requested")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Runner().Snapshot())
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Runner().ClearLogs(); err != nil {
		RespondWithStatus(w, http.StatusConflict, statusError, err.Error())
		return
	}
	RespondWithStatus(w, http.StatusOK, statusSuccess, "")
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "output_file")
	path, err := util.ResolveArtifact(s.app.Config().Output.Path, name)
	if err != nil {
		RespondWithStatus(w, http.StatusBadRequest, statusError, "Invalid file name")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			RespondWithStatus(w, http.StatusNotFound, statusError, "File not found")
			return
		}
		log.Error().Err(err).Str("file", name).Msg("Failed to open artifact")
		RespondWithStatus(w, http.StatusInternalServerError, statusError, "Error downloading file")
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		RespondWithStatus(w, http.StatusNotFound, statusError, "File not found")
		return
	}

	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		w.Header().Set("Content-Type", xlsxContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), file)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	products := s.app.Runner().Peek().Products
	if len(products) == 0 {
		RespondWithStatus(w, http.StatusNotFound, statusError, "No products available for download")
		return
	}

	name := export.CSVName(time.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, products); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV export")
	}
}
