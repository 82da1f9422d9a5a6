package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/s3hub/internal/errs"
	"github.com/koustreak/s3hub/internal/filestore"
	"github.com/koustreak/s3hub/internal/filestore/storetest"
	"github.com/koustreak/s3hub/internal/listing"
	"github.com/koustreak/s3hub/internal/logger"
	"github.com/koustreak/s3hub/internal/mutate"
	"github.com/koustreak/s3hub/internal/profile"
)

type testEnv struct {
	server   *httptest.Server
	fake     *storetest.Fake
	profiles *profile.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := &storetest.Fake{}
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})

	profiles, err := profile.NewStore(profile.NewMemoryBlobs())
	require.NoError(t, err)

	listings := listing.NewService(listing.NewMemoryCache(), listing.Options{Logger: log})
	batches := mutate.NewCoordinator(listings, mutate.Options{Logger: log})

	srv := NewServer(profiles, listings, batches, Options{
		Logger: log,
		NewStore: func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			return fake, nil
		},
	})

	hts := httptest.NewServer(srv.Router())
	t.Cleanup(hts.Close)
	t.Cleanup(srv.Close)

	return &testEnv{server: hts, fake: fake, profiles: profiles}
}

func (e *testEnv) addProfile(t *testing.T) profile.Profile {
	t.Helper()
	p, err := e.profiles.Add(profile.Params{
		Name:      "test",
		AccessKey: "ak",
		SecretKey: "sk",
		Service:   filestore.ServiceAWS,
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)

	// No profiles yet.
	resp := env.do(t, http.MethodGet, "/api/profiles", nil)
	var list profilesResponse
	decodeBody(t, resp, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, list.Profiles)
	assert.Empty(t, list.ActiveID)

	// Add one; it becomes active and the secret never comes back.
	resp = env.do(t, http.MethodPost, "/api/profiles", addProfileRequest{
		Name:      "personal",
		AccessKey: "AKIAX",
		SecretKey: "topsecret",
		Service:   "storj",
	})
	var created profile.Profile
	decodeBody(t, resp, &created)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.SecretKey)

	resp = env.do(t, http.MethodGet, "/api/profiles", nil)
	decodeBody(t, resp, &list)
	require.Len(t, list.Profiles, 1)
	assert.Equal(t, created.ID, list.ActiveID)
	assert.Empty(t, list.Profiles[0].SecretKey)

	// Delete it.
	resp = env.do(t, http.MethodDelete, "/api/profiles/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/profiles", nil)
	decodeBody(t, resp, &list)
	assert.Empty(t, list.Profiles)
}

func TestAddProfileValidation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/profiles", addProfileRequest{Name: "no-creds"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "invalid_input", body.Error.Kind)
}

func TestAddProfileRejectedByBackend(t *testing.T) {
	env := newTestEnv(t)

	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	listings := listing.NewService(listing.NewMemoryCache(), listing.Options{Logger: log})
	batches := mutate.NewCoordinator(listings, mutate.Options{Logger: log})
	srv := NewServer(env.profiles, listings, batches, Options{
		Logger: log,
		NewStore: func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			return nil, errs.New(errs.ErrKindPermissionDenied, "invalid credentials")
		},
	})
	hts := httptest.NewServer(srv.Router())
	defer hts.Close()

	body, err := json.Marshal(addProfileRequest{
		Name:      "bad",
		AccessKey: "ak",
		SecretKey: "wrong",
		Service:   "aws",
	})
	require.NoError(t, err)

	resp, err := http.Post(hts.URL+"/api/profiles", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, env.profiles.List())
}

func TestActivateProfile(t *testing.T) {
	env := newTestEnv(t)
	first := env.addProfile(t)
	env.addProfile(t) // second is now active

	resp := env.do(t, http.MethodPut, "/api/profiles/"+first.ID+"/activate", nil)
	var activated profile.Profile
	decodeBody(t, resp, &activated)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, activated.ID)

	active, ok := env.profiles.Active()
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID)
}

func TestActivateUnknownProfile(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/profiles/nope/activate", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListBuckets(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	env.fake.ListBucketsFunc = func(ctx context.Context) ([]filestore.BucketInfo, error) {
		return []filestore.BucketInfo{
			{Name: "media", CreatedAt: created},
			{Name: "backups"},
		}, nil
	}

	resp := env.do(t, http.MethodGet, "/api/buckets", nil)
	var body struct {
		Buckets []bucketResponse `json:"buckets"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body.Buckets, 2)
	assert.Equal(t, "media", body.Buckets[0].Name)
	require.NotNil(t, body.Buckets[0].CreatedAt)
	assert.True(t, created.Equal(*body.Buckets[0].CreatedAt))
	assert.Nil(t, body.Buckets[1].CreatedAt)
}

func TestListBucketsWithoutProfile(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/buckets", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetListingPaged(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	// 15 images in the bucket root.
	env.fake.ListFunc = func(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
		var objects []filestore.ObjectInfo
		for i := 0; i < 15; i++ {
			objects = append(objects, filestore.ObjectInfo{
				Key:  fmt.Sprintf("img%02d.jpg", i),
				Size: 100,
			})
		}
		return objects, nil
	}

	resp := env.do(t, http.MethodGet, "/api/listing?bucket=media&pageSize=10", nil)
	var body listingResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body.Items, 10)
	assert.Equal(t, 15, body.Total)
	assert.True(t, body.HasMore)
	assert.NotEmpty(t, body.Items[0].SignedURL)

	// Page 2 is a superset of page 1 and exhausts the listing.
	resp = env.do(t, http.MethodGet, "/api/listing?bucket=media&page=2&pageSize=10", nil)
	var page2 listingResponse
	decodeBody(t, resp, &page2)
	assert.Len(t, page2.Items, 15)
	assert.False(t, page2.HasMore)
	assert.Equal(t, body.Items, page2.Items[:10])

	// Both pages served from one backend fetch.
	assert.Equal(t, 1, env.fake.ListCalls)
}

func TestGetListingValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	for _, path := range []string{
		"/api/listing",
		"/api/listing?bucket=media&page=0",
		"/api/listing?bucket=media&pageSize=-3",
		"/api/listing?bucket=media&page=abc",
		"/api/listing?bucket=media&prefix=photos", // missing trailing slash
	} {
		resp := env.do(t, http.MethodGet, path, nil)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestListingBackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	env.fake.ListFunc = func(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
		return nil, errs.New(errs.ErrKindListingFailed, "backend unavailable")
	}

	resp := env.do(t, http.MethodGet, "/api/listing?bucket=media", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestCreateFolder(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	resp := env.do(t, http.MethodPost, "/api/folders", createFolderRequest{
		Bucket: "media",
		Prefix: "photos/",
		Name:   "trip",
	})
	var entry listing.Entry
	decodeBody(t, resp, &entry)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "photos/trip/", entry.Key)
	assert.True(t, entry.IsFolder)
	assert.Equal(t, []string{"photos/trip/"}, env.fake.PutKeys)
}

func TestCreateFolderRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	resp := env.do(t, http.MethodPost, "/api/folders", createFolderRequest{
		Bucket: "media",
		Name:   "   ",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.fake.PutCalls)
}

func TestDeleteEntries(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	resp := env.do(t, http.MethodPost, "/api/delete", deleteRequest{
		Bucket: "media",
		Entries: []deleteEntry{
			{Key: "photos/a.jpg"},
			{Key: "photos/b.jpg"},
		},
	})
	var body deleteResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, body.Deleted)
	assert.Equal(t, [][]string{{"photos/a.jpg"}, {"photos/b.jpg"}}, env.fake.RemovedBatches)
}

func TestDeletePartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	env.fake.RemoveFunc = func(ctx context.Context, bucket string, keys []string) error {
		if keys[0] == "photos/b.jpg" {
			return errs.New(errs.ErrKindBackendFailed, "remove rejected")
		}
		return nil
	}

	resp := env.do(t, http.MethodPost, "/api/delete", deleteRequest{
		Bucket: "media",
		Entries: []deleteEntry{
			{Key: "photos/a.jpg"},
			{Key: "photos/b.jpg"},
			{Key: "photos/c.jpg"},
		},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body struct {
		Error errorBody `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "partial_batch", body.Error.Kind)
	require.NotNil(t, body.Error.Completed)
	require.NotNil(t, body.Error.Total)
	assert.Equal(t, 1, *body.Error.Completed)
	assert.Equal(t, 3, *body.Error.Total)
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	// The presigned PUT target records what arrives.
	var uploaded []string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploaded = append(uploaded, strings.TrimPrefix(r.URL.Path, "/"))
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	env.fake.PresignPutFunc = func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
		return backend.URL + "/" + key, nil
	}
	env.fake.ListFunc = func(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
		var objects []filestore.ObjectInfo
		for _, key := range uploaded {
			objects = append(objects, filestore.ObjectInfo{Key: key, Size: 3})
		}
		return objects, nil
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("bucket", "media"))
	require.NoError(t, mw.WriteField("prefix", "photos/"))
	part, err := mw.CreateFormFile("files", "cat.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/upload", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var body uploadResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, body.Uploaded)
	assert.Equal(t, []string{"photos/cat.jpg"}, uploaded)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "photos/cat.jpg", body.Items[0].Key)
	assert.NotEmpty(t, body.Items[0].SignedURL)
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("bucket", "media"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/upload", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearCacheForcesRefetch(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	env.fake.ListFunc = func(ctx context.Context, bucket string, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
		return []filestore.ObjectInfo{{Key: "a.jpg", Size: 1}}, nil
	}

	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodGet, "/api/listing?bucket=media", nil)
		resp.Body.Close()
	}
	assert.Equal(t, 1, env.fake.ListCalls)

	resp := env.do(t, http.MethodDelete, "/api/cache", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/listing?bucket=media", nil)
	resp.Body.Close()
	assert.Equal(t, 2, env.fake.ListCalls)
}

func TestBackendConnectionReused(t *testing.T) {
	env := newTestEnv(t)
	env.addProfile(t)

	opened := 0
	fake := env.fake
	// Re-wire the factory through a fresh server to count open calls.
	log := logger.New(&logger.Config{Level: "error", Output: io.Discard})
	listings := listing.NewService(listing.NewMemoryCache(), listing.Options{Logger: log})
	batches := mutate.NewCoordinator(listings, mutate.Options{Logger: log})
	srv := NewServer(env.profiles, listings, batches, Options{
		Logger: log,
		NewStore: func(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
			opened++
			return fake, nil
		},
	})
	hts := httptest.NewServer(srv.Router())
	defer hts.Close()

	for i := 0; i < 3; i++ {
		resp, err := http.Get(hts.URL + "/api/buckets")
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 1, opened)
}
