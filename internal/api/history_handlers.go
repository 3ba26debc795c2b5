package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/shelfie-go/internal/models"
	"github.com/vrsandeep/shelfie-go/internal/store"
)

type storeResponse struct {
	Name       string            `json:"name"`
	Website    string            `json:"website"`
	DefaultURL string            `json:"default_url"`
	Categories []models.Category `json:"categories"`
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	profiles := s.app.Registry().All()
	stores := make([]storeResponse, 0, len(profiles))
	for _, p := range profiles {
		categories := p.Categories
		if categories == nil {
			categories = []models.Category{}
		}
		stores = append(stores, storeResponse{
			Name:       p.Name,
			Website:    p.Website,
			DefaultURL: p.DefaultURL,
			Categories: categories,
		})
	}
	RespondWithJSON(w, http.StatusOK, stores)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.app.Store().ListRuns(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.app.Store().GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRunProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.app.Store().GetRunProducts(chi.URLParam(r, "runID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, products)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if active := s.app.Runner().ActiveRunID(); active != "" && active == runID {
		RespondWithError(w, http.StatusConflict, "Cannot delete a running extraction")
		return
	}
	if err := s.app.Store().DeleteRun(runID); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		RespondWithError(w, http.StatusNotFound, "Run not found")
		return
	}
	RespondWithError(w, http.StatusInternalServerError, err.Error())
}
