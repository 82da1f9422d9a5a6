package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/listing"
)

type bucketResponse struct {
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// handleListBuckets lists the buckets of the active profile's account.
func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	conn, err := s.connection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	buckets, err := conn.Store.ListBuckets(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := make([]bucketResponse, 0, len(buckets))
	for _, b := range buckets {
		br := bucketResponse{Name: b.Name}
		if !b.CreatedAt.IsZero() {
			created := b.CreatedAt
			br.CreatedAt = &created
		}
		resp = append(resp, br)
	}

	s.writeJSON(w, http.StatusOK, map[string][]bucketResponse{"buckets": resp})
}

type listingResponse struct {
	Items    []listing.Entry `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	HasMore  bool            `json:"hasMore"`
}

// handleGetListing returns a paged directory view. Pages are
// cumulative: page N returns the first N*pageSize entries, matching an
// incremental-scroll client that always re-renders the whole list.
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bucket := q.Get("bucket")
	if bucket == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "bucket is required"))
		return
	}
	prefix := q.Get("prefix")

	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		s.writeError(w, err)
		return
	}
	size, err := queryInt(q.Get("pageSize"), s.pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.connection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	items, err := s.listings.GetListing(r.Context(), conn, bucket, prefix)
	if err != nil {
		s.writeError(w, err)
		return
	}

	paged := listing.Page(items, page, size)
	if paged == nil {
		paged = []listing.Entry{}
	}

	s.writeJSON(w, http.StatusOK, listingResponse{
		Items:    paged,
		Total:    len(items),
		Page:     page,
		PageSize: size,
		HasMore:  len(paged) < len(items),
	})
}

// handleClearCache drops every cached listing so the next requests see
// backend truth. Used on session teardown.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.listings.Clear(); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errs.New(errs.ErrKindInvalidInput, "page and pageSize must be positive integers")
	}
	return n, nil
}
