package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	"github.com/koustreak/s3hub/internal/profile"
)

type addProfileRequest struct {
	Name      string `json:"name"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Service   string `json:"service"`
	Region    string `json:"region"`
}

type profilesResponse struct {
	Profiles []profile.Profile `json:"profiles"`
	ActiveID string            `json:"activeId,omitempty"`
}

// handleListProfiles returns every profile with secrets blanked.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	resp := profilesResponse{Profiles: []profile.Profile{}}
	for _, p := range s.profiles.List() {
		resp.Profiles = append(resp.Profiles, p.Redacted())
	}
	if active, ok := s.profiles.Active(); ok {
		resp.ActiveID = active.ID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAddProfile validates the credentials against the backend, then
// creates the profile and makes it active. The probed connection is
// kept for the requests that follow.
func (s *Server) handleAddProfile(w http.ResponseWriter, r *http.Request) {
	var req addProfileRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.AccessKey == "" || req.SecretKey == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "access key and secret key are required"))
		return
	}

	params := profile.Params{
		Name:      req.Name,
		AccessKey: req.AccessKey,
		SecretKey: req.SecretKey,
		Service:   filestore.Service(req.Service),
		Region:    req.Region,
	}

	// Opening the backend doubles as the login check.
	probe := profile.Profile{
		AccessKey: params.AccessKey,
		SecretKey: params.SecretKey,
		Service:   params.Service,
		Region:    params.Region,
	}
	store, err := s.newStore(r.Context(), probe.Config())
	if err != nil {
		s.writeError(w, err)
		return
	}

	p, err := s.profiles.Add(params)
	if err != nil {
		store.Close()
		s.writeError(w, err)
		return
	}

	s.mu.Lock()
	s.stores[p.ID] = store
	s.mu.Unlock()

	s.writeJSON(w, http.StatusCreated, p.Redacted())
}

// handleDeleteProfile removes a profile and its cached backend
// connection.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.profiles.Delete(id); err != nil {
		s.writeError(w, err)
		return
	}
	s.dropStore(id)

	w.WriteHeader(http.StatusNoContent)
}

// handleActivateProfile switches the active profile.
func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.profiles.SetActive(id); err != nil {
		s.writeError(w, err)
		return
	}

	p, _ := s.profiles.Get(id)
	s.writeJSON(w, http.StatusOK, p.Redacted())
}
