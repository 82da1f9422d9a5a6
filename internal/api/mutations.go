package api

import (
	"net/http"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/listing"
	"github.com/koustreak/s3hub/internal/mutate"
)

type createFolderRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	Name   string `json:"name"`
}

// handleCreateFolder writes a folder marker and returns its entry.
func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Bucket == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "bucket is required"))
		return
	}

	conn, err := s.connection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	entry, err := s.batches.CreateFolder(r.Context(), conn, req.Bucket, req.Prefix, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, entry)
}

type deleteRequest struct {
	Bucket  string        `json:"bucket"`
	Entries []deleteEntry `json:"entries"`
}

type deleteEntry struct {
	Key      string `json:"key"`
	IsFolder bool   `json:"isFolder"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

// handleDelete removes a batch of entries. A partial failure surfaces
// as 502 with the completed/total counts in the error body.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Bucket == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "bucket is required"))
		return
	}

	conn, err := s.connection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	entries := make([]listing.Entry, len(req.Entries))
	for i, e := range req.Entries {
		entries[i] = listing.Entry{Key: e.Key, IsFolder: e.IsFolder}
	}

	if err := s.batches.DeleteEntries(r.Context(), conn, req.Bucket, entries, nil); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{Deleted: len(entries)})
}

// maxUploadMemory bounds how much of a multipart upload is held in
// memory before spooling to disk.
const maxUploadMemory = 32 << 20

type uploadResponse struct {
	Uploaded int             `json:"uploaded"`
	Items    []listing.Entry `json:"items"`
}

// handleUpload accepts a multipart form with "bucket" and "prefix"
// fields and one or more "files" parts, uploads them, and returns the
// refreshed listing of the destination prefix.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "malformed multipart form", err))
		return
	}

	bucket := r.FormValue("bucket")
	if bucket == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "bucket is required"))
		return
	}
	prefix := r.FormValue("prefix")

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "no files in upload"))
		return
	}

	files := make([]mutate.File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "unreadable upload part", err))
			return
		}
		defer f.Close()

		files = append(files, mutate.File{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Content:     f,
		})
	}

	conn, err := s.connection(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	items, err := s.batches.UploadFiles(r.Context(), conn, bucket, prefix, files, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{Uploaded: len(files), Items: items})
}
