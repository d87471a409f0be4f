package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/person-tracker/internal/catalog"
	"github.com/kozaktomas/person-tracker/internal/gallery"
	"github.com/kozaktomas/person-tracker/internal/tracker"
)

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, tracker.Collect(s.currentGallery(), s.store))
}

// identityResponse is one identity in list and detail responses.
type identityResponse struct {
	Name        string         `json:"name"`
	TotalImages int            `json:"total_images"`
	Metadata    catalog.Record `json:"metadata"`
}

func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	g := s.currentGallery()

	identities := make([]identityResponse, 0, g.Count())
	for _, entry := range g.Entries() {
		rec, _ := s.store.RecordFor(entry.ID)
		identities = append(identities, identityResponse{
			Name:        catalog.IdentityName(entry.ID),
			TotalImages: s.store.CountImages(entry.ID),
			Metadata:    rec,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total":      len(identities),
		"identities": identities,
	})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	id, ok := catalog.ParseIdentityName(name)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid identity name")
		return
	}

	g := s.currentGallery()
	found := false
	for _, entry := range g.Entries() {
		if entry.ID == id {
			found = true
			break
		}
	}
	if !found {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	rec, _ := s.store.RecordFor(id)
	respondJSON(w, http.StatusOK, identityResponse{
		Name:        catalog.IdentityName(id),
		TotalImages: s.store.CountImages(id),
		Metadata:    rec,
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	jobID := uuid.New().String()
	job := s.jobs.Create(jobID)

	go s.runReindex(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, ok := s.jobs.Get(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// runReindex rebuilds the gallery from disk and swaps it in.
func (s *Server) runReindex(job *ReindexJob) {
	job.setRunning()

	refs, err := s.store.Load(context.Background(), s.embed)
	if err != nil {
		s.logger.Warn("reindex failed", "job", job.ID, "error", err)
		job.fail(err)
		return
	}

	g := gallery.New()
	for _, ref := range refs {
		g.Insert(ref.ID, ref.Embedding)
	}
	s.swapGallery(g)

	s.logger.Info("reindex completed", "job", job.ID, "identities", g.Count())
	job.complete(g.Count())
}
