package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autotunecode/image-meta-api/internal/domain"
	"github.com/autotunecode/image-meta-api/internal/service"
)

// ---- фейки ----

type fakeSvc struct {
	res domain.UploadResult
	err error

	gotInput *service.UploadInput
}

func (f *fakeSvc) Upload(ctx context.Context, in service.UploadInput) (domain.UploadResult, error) {
	f.gotInput = &in
	return f.res, f.err
}

type fakeRepo struct {
	byID    map[domain.ImageID]domain.Image
	list    []domain.Image
	listErr error

	listCalls int
}

func (f *fakeRepo) Close()                         {}
func (f *fakeRepo) Ping(ctx context.Context) error { return nil }

func (f *fakeRepo) ImageByHash(ctx context.Context, hash string) (domain.Image, error) {
	return domain.Image{}, domain.ErrNotFound
}

func (f *fakeRepo) ImageByID(ctx context.Context, id domain.ImageID) (domain.Image, error) {
	if img, ok := f.byID[id]; ok {
		return img, nil
	}
	return domain.Image{}, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
}

func (f *fakeRepo) CreateImage(ctx context.Context, img domain.Image) (domain.Image, error) {
	return img, nil
}

func (f *fakeRepo) ImagesList(ctx context.Context, limit, offset int) ([]domain.Image, error) {
	f.listCalls++
	return f.list, f.listErr
}

type fakeStorage struct {
	presignErr error
}

func (f *fakeStorage) EnsureBucket(ctx context.Context) error { return nil }
func (f *fakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, mime string) error {
	return nil
}
func (f *fakeStorage) Delete(ctx context.Context, key string) error { return nil }
func (f *fakeStorage) Ping(ctx context.Context) error               { return nil }
func (f *fakeStorage) List(ctx context.Context, prefix string, max int) ([]domain.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeStorage) PresignedGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "http://minio.local/" + key + "?sig=test", nil
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	return f.data[key], nil
}
func (f *fakeCache) Set(ctx context.Context, key string, val []byte, ttl int) error {
	f.data[key] = val
	return nil
}
func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}
func (f *fakeCache) Incr(ctx context.Context, key string) (int64, error) { return 1, nil }
func (f *fakeCache) Ping(ctx context.Context) error                      { return nil }
func (f *fakeCache) Close()                                              {}

func testHandler(svc UploadService, repo domain.ImagesRepo, cache domain.Cache) *Handler {
	return &Handler{
		Log:        log.New(io.Discard, "", 0),
		Svc:        svc,
		Repo:       repo,
		Storage:    &fakeStorage{},
		Cache:      cache,
		PresignTTL: time.Hour,
		ListTTL:    60,
		MetaTTL:    300,
	}
}

// multipartBody собирает multipart-запрос как его шлёт клиент
func multipartBody(t *testing.T, metadata string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)
	if metadata != "" {
		require.NoError(t, mp.WriteField("metadata", metadata))
	}
	if filename != "" {
		fw, err := mp.CreateFormFile("image_file", filename)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mp.Close())
	return &buf, mp.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domain.APIEnvelope {
	t.Helper()
	var env domain.APIEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

// ---- Upload ----

func TestUpload_Created(t *testing.T) {
	id := uuid.New()
	svc := &fakeSvc{res: domain.UploadResult{
		Image:       domain.Image{ID: id, Title: "t1", ContentHash: "abc"},
		DownloadURL: "http://minio.local/images/abc_a.gif?sig=test",
	}}
	h := testHandler(svc, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, `{"title":"t1","description":"d1"}`, "a.gif", []byte("GIF89a-data"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Nil(t, env.Error)
	require.NotNil(t, svc.gotInput)
	assert.Equal(t, "a.gif", svc.gotInput.Filename)
	assert.Equal(t, "t1", svc.gotInput.Meta.Title)
}

func TestUpload_MissingMetadata(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, "", "a.gif", []byte("GIF89a-data"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, domain.ErrCodeBadParams, env.Error.Code)
}

func TestUpload_BadMetadataJSON(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, `{"title": broken`, "a.gif", []byte("GIF89a-data"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, `{"title":"t","description":"d"}`, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_Duplicate(t *testing.T) {
	existing := domain.Image{ID: uuid.New(), Title: "first", ContentHash: "abc"}
	svc := &fakeSvc{err: &domain.DuplicateError{Existing: existing}}
	h := testHandler(svc, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, `{"title":"t2","description":"d"}`, "copy.gif", []byte("GIF89a-data"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, domain.ErrCodeDuplicate, env.Error.Code)
	// в data — существующая запись, чтобы клиент мог сослаться на неё
	assert.Contains(t, rec.Body.String(), existing.ID.String())
}

func TestUpload_StorageDown(t *testing.T) {
	svc := &fakeSvc{err: fmt.Errorf("s3 put: %w", domain.ErrStorageUnavailable)}
	h := testHandler(svc, &fakeRepo{}, newFakeCache())

	body, ct := multipartBody(t, `{"title":"t","description":"d"}`, "a.gif", []byte("GIF89a-data"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ---- GetOne ----

func TestGetOne_OK(t *testing.T) {
	img := domain.Image{ID: uuid.New(), Title: "t", StorageKey: "images/abc_a.gif"}
	repo := &fakeRepo{byID: map[domain.ImageID]domain.Image{img.ID: img}}
	cache := newFakeCache()
	h := testHandler(&fakeSvc{}, repo, cache)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+img.ID.String(), nil)
	req.SetPathValue("id", img.ID.String())
	rec := httptest.NewRecorder()

	h.GetOne(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), img.ID.String())
	assert.Contains(t, rec.Body.String(), "sig=test")
	// метаданные легли в кеш
	assert.NotEmpty(t, cache.data[domain.CacheKeyImageMeta(img.ID)])
}

func TestGetOne_CacheHitSkipsRepo(t *testing.T) {
	img := domain.Image{ID: uuid.New(), Title: "cached", StorageKey: "images/abc_a.gif"}
	cache := newFakeCache()
	b, err := json.Marshal(img)
	require.NoError(t, err)
	cache.data[domain.CacheKeyImageMeta(img.ID)] = b

	// репозиторий пуст: попадание в него закончилось бы 404
	h := testHandler(&fakeSvc{}, &fakeRepo{}, cache)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+img.ID.String(), nil)
	req.SetPathValue("id", img.ID.String())
	rec := httptest.NewRecorder()

	h.GetOne(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cached")
}

func TestGetOne_BadID(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()

	h.GetOne(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOne_NotFound(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+id, nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()

	h.GetOne(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- List ----

func TestList_OKAndCached(t *testing.T) {
	imgs := []domain.Image{
		{ID: uuid.New(), Title: "one"},
		{ID: uuid.New(), Title: "two"},
	}
	repo := &fakeRepo{list: imgs}
	cache := newFakeCache()
	h := testHandler(&fakeSvc{}, repo, cache)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images?limit=10", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "one")
	assert.Contains(t, rec.Body.String(), `"count":2`)
	assert.Equal(t, 1, repo.listCalls)

	// повторный запрос той же страницы идёт из кеша
	rec2 := httptest.NewRecorder()
	h.List(rec2, httptest.NewRequest(http.MethodGet, "/api/v1/images?limit=10", nil))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
	assert.Equal(t, 1, repo.listCalls)
}

func TestList_ClampedLimitsShareCacheEntry(t *testing.T) {
	repo := &fakeRepo{list: []domain.Image{{ID: uuid.New(), Title: "one"}}}
	cache := newFakeCache()
	h := testHandler(&fakeSvc{}, repo, cache)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/images?limit=10000&offset=-7", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.listCalls)

	// limit выше потолка клампится к нему же — страница берётся из кеша
	rec2 := httptest.NewRecorder()
	h.List(rec2, httptest.NewRequest(http.MethodGet, "/api/v1/images?limit=100&offset=0", nil))
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec.Body.String(), rec2.Body.String())
	assert.Equal(t, 1, repo.listCalls)

	// в кеш легла ровно одна страница под клампнутым ключом
	assert.Len(t, cache.data, 1)
}

func TestList_EmptyIsArray(t *testing.T) {
	h := testHandler(&fakeSvc{}, &fakeRepo{}, newFakeCache())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"images":[]`)
}

func TestList_RepoDown(t *testing.T) {
	repo := &fakeRepo{listErr: fmt.Errorf("list: %w", domain.ErrMetaUnavailable)}
	h := testHandler(&fakeSvc{}, repo, newFakeCache())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
