package api

import (
	"Gallery_Manager/config"
	"Gallery_Manager/internal/gallery"
	"Gallery_Manager/internal/task"
	"Gallery_Manager/internal/testutil"
	"Gallery_Manager/pkg/database/memory"
	"Gallery_Manager/pkg/deletion"
	"Gallery_Manager/pkg/index"
	"Gallery_Manager/pkg/layout"
	"Gallery_Manager/pkg/storage"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router http.Handler
	store  *memory.Store
	tasks  *task.Manager
	cfgDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Gallery.BackoffBase = time.Millisecond

	store := memory.NewStore()
	store.Seed(cfg.Gallery.DocumentCollection,
		testutil.Doc("a", "/travel_media/a1.jpg", "/travel_media/a2.jpg"),
		testutil.Doc("b", "/travel_media/b1.jpg"),
	)
	assets := storage.NewMemoryStore()
	assets.Put(cfg.Gallery.AssetCollection, "/travel_media/a1.jpg", "/travel_media/a2.jpg", "/travel_media/b1.jpg")

	idx := index.NewService(store, cfg.Gallery.DocumentCollection, cfg.Index.StaleAfter)
	coord := deletion.NewCoordinator(store, assets, idx, deletion.OptionsFromConfig(cfg.Gallery))
	g := gallery.NewService(idx, coord, layout.NewEngine(cfg.Layout))
	tm := task.NewManager(g)

	dir := t.TempDir()
	h := NewAPIHandlers(g, tm, filepath.Join(dir, "config.yaml"))
	return &testServer{router: RegisterRoutes(h, nil), store: store, tasks: tm, cfgDir: dir}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type mediaResponse struct {
	Data []struct {
		Identity string `json:"identity"`
		EntryKey string `json:"entryKey"`
	} `json:"data"`
	Total int `json:"total"`
}

func TestListMedia(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/media", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[mediaResponse](t, rec)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, "a-/travel_media/a1.jpg", resp.Data[0].Identity)
}

func TestLayout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/layout?width=950", "")
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decode[layout.Grid](t, rec)
	assert.Equal(t, 3, grid.Columns)
	assert.Len(t, grid.Placements, 3)

	rec = s.do(t, http.MethodGet, "/api/v1/layout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMediaOutlivesWriteTimeout(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewUnstartedServer(s.router)
	// 读完请求头后写超时就已经过期
	srv.Config.WriteTimeout = time.Nanosecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/media/delete", "application/json",
		strings.NewReader(`{"identities":["b-/travel_media/b1.jpg"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Outcome struct {
			Processed int `json:"processed"`
		} `json:"outcome"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Outcome.Processed)
}

func TestDeleteMedia(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/media/delete",
		`{"identities":["a-/travel_media/a1.jpg","b-/travel_media/b1.jpg","x-/travel_media/nope.jpg"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[struct {
		Outcome struct {
			Processed int `json:"processed"`
			Failed    int `json:"failed"`
			Total     int `json:"total"`
		} `json:"outcome"`
		Unresolved []string `json:"unresolved"`
	}](t, rec)
	assert.Equal(t, 2, resp.Outcome.Processed)
	assert.Zero(t, resp.Outcome.Failed)
	assert.Equal(t, []string{"x-/travel_media/nope.jpg"}, resp.Unresolved)

	list := decode[mediaResponse](t, s.do(t, http.MethodGet, "/api/v1/media", ""))
	require.Equal(t, 1, list.Total, "index is rebuilt after deletion")
	assert.Equal(t, "a-/travel_media/a2.jpg", list.Data[0].Identity)
}

func TestDeleteMediaBadSelection(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/media/delete", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/media/delete", `{"identities":[]}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/media/delete", `{"identities":["zzz"]}`).Code)
}

func TestDeleteTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/tasks/delete", `{"identities":["b-/travel_media/b1.jpg"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[struct {
		TaskID string `json:"taskId"`
	}](t, rec)
	require.NotEmpty(t, started.TaskID)

	s.tasks.Wait()

	rec = s.do(t, http.MethodGet, "/api/v1/tasks/"+started.TaskID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[task.Task](t, rec)
	assert.Equal(t, task.StatusCompleted, status.Status)
	assert.Equal(t, 1, status.Processed)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/tasks/unknown", "").Code)
}

func TestUpdateConfigWritesYAML(t *testing.T) {
	s := newTestServer(t)
	prev := config.C
	t.Cleanup(func() { config.C = prev })

	rec := s.do(t, http.MethodPut, "/api/v1/config", `{"Layout":{"MinColumnWidth":250}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	data, err := os.ReadFile(filepath.Join(s.cfgDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "minColumnWidth: 250")
	assert.Contains(t, string(data), "documentCollection: travel_entries")
	assert.Equal(t, 250, config.C.Layout.MinColumnWidth)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
