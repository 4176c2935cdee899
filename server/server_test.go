package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/pipeline"
	"github.com/input-output-hk/catalyst-forge-release/store"
	"github.com/input-output-hk/catalyst-forge-release/trigger"
)

// fakeReleaser records run requests and signals each call.
type fakeReleaser struct {
	calls chan pipeline.RunRequest
}

func newFakeReleaser() *fakeReleaser {
	return &fakeReleaser{calls: make(chan pipeline.RunRequest, 8)}
}

func (f *fakeReleaser) Run(ctx context.Context, req pipeline.RunRequest) (*domain.PipelineRun, error) {
	f.calls <- req
	return &domain.PipelineRun{ID: uuid.NewString(), Tag: req.Tag, Status: domain.StatusSuccess}, nil
}

func newTestServer(t *testing.T, journal *store.Store) (*Server, *fakeReleaser) {
	t.Helper()

	cfg := &config.Config{Project: "hyprtool"}
	cfg.ApplyDefaults()

	releaser := newFakeReleaser()
	s := New(cfg, releaser, trigger.NewMatcher("v*"), journal, nil,
		WithWorkspaceFunc(func(ctx context.Context, tag string) (string, func(), error) {
			return t.TempDir(), func() {}, nil
		}),
	)
	return s, releaser
}

func postPush(t *testing.T, handler http.Handler, event trigger.Event) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/push", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPushQueuesMatchingTag(t *testing.T) {
	s, releaser := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.runWorker(ctx)

	rec := postPush(t, s.Handler(), trigger.Event{
		Ref:    "refs/tags/v1.2.0",
		Pusher: "dev",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "queued", body["status"])
	assert.Equal(t, "v1.2.0", body["tag"])

	select {
	case req := <-releaser.calls:
		assert.Equal(t, "v1.2.0", req.Tag)
		assert.Equal(t, "dev", req.TriggeredBy)
		assert.Equal(t, "webhook", req.TriggerType)
	case <-time.After(5 * time.Second):
		t.Fatal("release run was never executed")
	}
}

func TestPushRejectsBranchPush(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postPush(t, s.Handler(), trigger.Event{Ref: "refs/heads/main"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPushRejectsNonMatchingTag(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := postPush(t, s.Handler(), trigger.Event{Ref: "refs/tags/nightly"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPushRejectsMalformedPayload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/push", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns(t *testing.T) {
	journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	run := &domain.PipelineRun{
		ID:          uuid.NewString(),
		Project:     "hyprtool",
		Tag:         "v1.0.0",
		CommitSHA:   "abc",
		TriggeredBy: "dev",
		TriggerType: "webhook",
		Status:      domain.StatusSuccess,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, journal.InsertRun(context.Background(), run))

	s, _ := newTestServer(t, journal)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []domain.PipelineRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "v1.0.0", runs[0].Tag)
}

func TestListRunsInvalidLimit(t *testing.T) {
	journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	s, _ := newTestServer(t, journal)

	req := httptest.NewRequest(http.MethodGet, "/runs?limit=many", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	ctx := context.Background()
	journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	run := &domain.PipelineRun{
		ID:          uuid.NewString(),
		Project:     "hyprtool",
		Tag:         "v1.0.0-rc1",
		CommitSHA:   "abc",
		TriggeredBy: "dev",
		TriggerType: "webhook",
		Status:      domain.StatusHalted,
		HaltReason:  "pre-release tag",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, journal.InsertRun(ctx, run))
	require.NoError(t, journal.RecordStep(ctx, &domain.StepExecution{
		ID:     uuid.NewString(),
		RunID:  run.ID,
		Name:   "pre-release-gate",
		Kind:   domain.StepKindGate,
		Status: domain.StatusHalted,
	}))

	s, _ := newTestServer(t, journal)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+run.ID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Run   domain.PipelineRun     `json:"run"`
		Steps []domain.StepExecution `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, domain.StatusHalted, detail.Run.Status)
	require.Len(t, detail.Steps, 1)
	assert.Equal(t, domain.StepKindGate, detail.Steps[0].Kind)
}

func TestGetRunNotFound(t *testing.T) {
	journal, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	s, _ := newTestServer(t, journal)

	req := httptest.NewRequest(http.MethodGet, "/runs/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
