// Package api exposes the hub over HTTP: profile management, bucket
// discovery, paged directory listings, and batch mutations. Handlers
// translate errs kinds to status codes; all request and response
// bodies are JSON except uploads, which stream multipart form data.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	"github.com/koustreak/s3hub/internal/filestore/minio"
	"github.com/koustreak/s3hub/internal/listing"
	"github.com/koustreak/s3hub/internal/logger"
	"github.com/koustreak/s3hub/internal/mutate"
	"github.com/koustreak/s3hub/internal/profile"
)

// StoreFactory opens a storage backend for a profile's configuration.
type StoreFactory func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error)

// Options configures a Server.
type Options struct {
	// PageSize is the default listing page size when the request does
	// not carry one. listing.DefaultPageSize when zero.
	PageSize int

	// NewStore opens backends for profiles. Defaults to the minio
	// driver; tests inject fakes here.
	NewStore StoreFactory

	Logger *logger.Logger
}

// Server routes HTTP requests onto the profile store, listing service
// and mutation coordinator. Backend connections are opened lazily per
// profile and reused until the profile is deleted.
type Server struct {
	profiles *profile.Store
	listings *listing.Service
	batches  *mutate.Coordinator
	log      *logger.Logger

	pageSize int
	newStore StoreFactory

	mu     sync.Mutex
	stores map[string]filestore.Store
}

// NewServer wires the HTTP layer over the given subsystems.
func NewServer(profiles *profile.Store, listings *listing.Service, batches *mutate.Coordinator, opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = listing.DefaultPageSize
	}
	if opts.NewStore == nil {
		opts.NewStore = func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			return minio.New(ctx, cfg)
		}
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(nil)
	}
	return &Server{
		profiles: profiles,
		listings: listings,
		batches:  batches,
		log:      opts.Logger,
		pageSize: opts.PageSize,
		newStore: opts.NewStore,
		stores:   make(map[string]filestore.Store),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/profiles", s.handleListProfiles)
		r.Post("/profiles", s.handleAddProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
		r.Put("/profiles/{id}/activate", s.handleActivateProfile)

		r.Get("/buckets", s.handleListBuckets)
		r.Get("/listing", s.handleGetListing)

		r.Post("/folders", s.handleCreateFolder)
		r.Post("/delete", s.handleDelete)
		r.Post("/upload", s.handleUpload)

		r.Delete("/cache", s.handleClearCache)
	})

	return r
}

// requestLogger logs one line per request and stores a request-scoped
// logger in the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.With().
			Int("status", rec.status).
			Str("duration", time.Since(start).String()).
			Logger().
			Info("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// connection resolves the active profile to a listing.Connection,
// opening (and caching) its backend on first use.
func (s *Server) connection(ctx context.Context) (listing.Connection, error) {
	p, ok := s.profiles.Active()
	if !ok {
		return listing.Connection{}, errs.New(errs.ErrKindNotFound, "no active profile")
	}

	s.mu.Lock()
	store, cached := s.stores[p.ID]
	s.mu.Unlock()
	if cached {
		return listing.Connection{ID: p.ID, Store: store}, nil
	}

	store, err := s.newStore(ctx, p.Config())
	if err != nil {
		return listing.Connection{}, err
	}

	s.mu.Lock()
	if existing, raced := s.stores[p.ID]; raced {
		s.mu.Unlock()
		store.Close()
		return listing.Connection{ID: p.ID, Store: existing}, nil
	}
	s.stores[p.ID] = store
	s.mu.Unlock()

	return listing.Connection{ID: p.ID, Store: store}, nil
}

// dropStore closes and forgets the cached backend for a profile id.
func (s *Server) dropStore(id string) {
	s.mu.Lock()
	store, ok := s.stores[id]
	delete(s.stores, id)
	s.mu.Unlock()

	if ok {
		if err := store.Close(); err != nil {
			s.log.ErrorWith("failed to close backend", err, map[string]interface{}{"profile": id})
		}
	}
}

// Close releases every cached backend connection.
func (s *Server) Close() {
	s.mu.Lock()
	stores := s.stores
	s.stores = make(map[string]filestore.Store)
	s.mu.Unlock()

	for id, store := range stores {
		if err := store.Close(); err != nil {
			s.log.ErrorWith("failed to close backend", err, map[string]interface{}{"profile": id})
		}
	}
}

type errorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Completed *int   `json:"completed,omitempty"`
	Total     *int   `json:"total,omitempty"`
}

// writeError maps an errs kind onto a status code and serializes the
// error body. Partial batch failures additionally carry the
// completed/total counts so the client can report the exact subset
// that went through.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := errs.Kind(err)

	var status int
	switch kind {
	case errs.ErrKindInvalidInput:
		status = http.StatusBadRequest
	case errs.ErrKindNotFound:
		status = http.StatusNotFound
	case errs.ErrKindPermissionDenied:
		status = http.StatusForbidden
	case errs.ErrKindTimeout:
		status = http.StatusGatewayTimeout
	case errs.ErrKindListingFailed, errs.ErrKindBackendFailed,
		errs.ErrKindConnectionFailed, errs.ErrKindPartialBatch:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	body := errorBody{Kind: kind.String(), Message: err.Error()}
	if be, ok := errs.AsBatch(err); ok {
		body.Completed = &be.Completed
		body.Total = &be.Total
	}

	s.writeJSON(w, status, map[string]errorBody{"error": body})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorWith("failed to encode response", err, nil)
	}
}

func (s *Server) readJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "malformed request body", err)
	}
	return nil
}
