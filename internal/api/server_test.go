package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"readersync/internal/metrics"
	"readersync/internal/model"
	"readersync/internal/notify"
	"readersync/internal/runner"
	"readersync/internal/store"
)

type fakeTrigger struct {
	mu      sync.Mutex
	batches int
	jobs    []int64
}

func (f *fakeTrigger) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
}

func (f *fakeTrigger) TriggerJob(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, id)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) JobEnqueued(_ context.Context, jobID int64, priority int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notify.Event{JobID: jobID, Priority: priority})
	return nil
}

type fixture struct {
	st       *store.Store
	trigger  *fakeTrigger
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	handler  http.Handler
}

// newFixture wires a server around a temp database and a shell script
// standing in for the processor.
func newFixture(t *testing.T, processor string) *fixture {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	script := filepath.Join(dir, "processor.sh")
	require.NoError(t, os.WriteFile(script, []byte(processor), 0o755))

	log := zaptest.NewLogger(t)
	m := metrics.New()
	run := runner.New(runner.Options{
		Bin:           "/bin/sh",
		ProcessScript: script,
		ResyncScript:  script,
	}, log, m)

	f := &fixture{st: st, trigger: &fakeTrigger{}, notifier: &recordingNotifier{}, metrics: m}
	f.handler = New(Options{
		Store:      st,
		Runner:     run,
		Dispatcher: f.trigger,
		Notifier:   f.notifier,
		Metrics:    m,
		Logger:     log,
	}).Handler()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (f *fixture) seedAvatar(t *testing.T) (personID, fileID int64) {
	t.Helper()
	ctx := context.Background()
	personID, err := f.st.CreatePerson(ctx, "Maria Souza")
	require.NoError(t, err)
	fileID, err = f.st.CreateAvatar(ctx, personID, "/srv/fotos/maria.jpg", "")
	require.NoError(t, err)
	return personID, fileID
}

const okProcessor = `echo '{"sucesso": true, "jobs_processados": 2, "sucessos": 2, "falhas": 0}'`

func TestHealth(t *testing.T) {
	f := newFixture(t, okProcessor)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[healthResponse](t, rec).Status)
}

func TestCreateJobAnnouncesStoredPriority(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, fileID := f.seedAvatar(t)
	require.NoError(t, f.st.SetConfig(context.Background(), "default_priority", "4"))

	rec := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"evento_id": 1, "pessoa_id": personID, "arquivo_id": fileID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[createJobResponse](t, rec)

	job, err := f.st.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, 4, job.Priority)
	assert.Equal(t, []notify.Event{{JobID: resp.JobID, Priority: 4}}, f.notifier.events)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, okProcessor)
	rec := f.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "endpoint not found"}`, rec.Body.String())
}

func TestCreateJob(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, fileID := f.seedAvatar(t)

	rec := f.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"evento_id": 1, "pessoa_id": personID, "arquivo_id": fileID, "prioridade": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[createJobResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Positive(t, resp.JobID)

	job, err := f.st.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, job.Status)
	assert.Equal(t, 3, job.Priority)
	assert.Equal(t, 1, f.trigger.batches)
}

func TestCreateJobValidation(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, fileID := f.seedAvatar(t)
	other, err := f.st.CreatePerson(context.Background(), "João")
	require.NoError(t, err)

	cases := map[string]map[string]any{
		"missing event": {"pessoa_id": personID, "arquivo_id": fileID},
		"bad priority":  {"evento_id": 1, "pessoa_id": personID, "arquivo_id": fileID, "prioridade": 11},
		"foreign file":  {"evento_id": 1, "pessoa_id": other, "arquivo_id": fileID},
		"unknown file":  {"evento_id": 1, "pessoa_id": personID, "arquivo_id": 999},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/jobs", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.trigger.batches)
}

func TestStatusAndList(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, fileID := f.seedAvatar(t)
	ctx := context.Background()
	for _, p := range []int{5, 1} {
		_, err := f.st.EnqueueImageSync(ctx, store.EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID, Priority: p})
		require.NoError(t, err)
	}

	rec := f.do(t, http.MethodGet, "/api/jobs/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pendentes": 2, "processando": 0, "concluidos": 0, "falhas": 0}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/jobs?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listJobsResponse](t, rec)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, 1, list.Jobs[0].Priority)
	assert.Equal(t, "Maria Souza", list.Jobs[0].PersonName)

	rec = f.do(t, http.MethodGet, "/api/jobs?status=failed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[listJobsResponse](t, rec).Total)

	rec = f.do(t, http.MethodGet, "/api/jobs?status=dead", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/jobs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessPending(t *testing.T) {
	f := newFixture(t, okProcessor)

	rec := f.do(t, http.MethodPost, "/api/jobs/process?limit=50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[model.ProcessResult](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Succeeded)
}

func TestProcessPendingMalformedOutput(t *testing.T) {
	f := newFixture(t, `echo "Traceback: boom"; exit 1`)

	rec := f.do(t, http.MethodPost, "/api/jobs/process", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	res := decode[model.ProcessResult](t, rec)
	assert.False(t, res.Success)
	assert.Contains(t, res.Output, "Traceback: boom")
}

func TestProcessJob(t *testing.T) {
	f := newFixture(t, `echo '{"sucesso": true, "jobs_processados": 1, "sucessos": 1}'`)
	personID, fileID := f.seedAvatar(t)
	id, err := f.st.EnqueueImageSync(context.Background(), store.EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/jobs/"+itoa(id)+"/process", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[model.ProcessResult](t, rec).Succeeded)

	rec = f.do(t, http.MethodPost, "/api/jobs/999/process", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/jobs/x/process", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetryJob(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, fileID := f.seedAvatar(t)
	ctx := context.Background()
	id, err := f.st.EnqueueImageSync(ctx, store.EnqueueParams{EventID: 1, PersonID: personID, FileID: fileID})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/jobs/"+itoa(id)+"/retry", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	_, err = f.st.DB.Exec(`UPDATE sync_jobs SET status='failed', attempts=3 WHERE id=?`, id)
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/api/jobs/"+itoa(id)+"/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int64{id}, f.trigger.jobs)

	job, err := f.st.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, job.Status)
	assert.Zero(t, job.Attempts)
}

func TestCreatePhoto(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, err := f.st.CreatePerson(context.Background(), "Ana")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/photos", map[string]any{
		"evento_id": 7, "pessoa_id": personID, "imagem_base64": "aGVsbG8=",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[createPhotoResponse](t, rec)

	job, err := f.st.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHighest, job.Priority)
	assert.Equal(t, resp.FileID, job.FileID)
	assert.Equal(t, []int64{resp.JobID}, f.trigger.jobs)

	rec = f.do(t, http.MethodPost, "/api/photos", map[string]any{"evento_id": 7, "pessoa_id": personID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResyncReader(t *testing.T) {
	f := newFixture(t, `
echo "sincronizando leitor $1"
echo '{"sucesso": true, "total_pessoas": 3, "total_imagens_enviadas": 3, "total_erros": 0, "erros": [], "mensagem": "ok"}'
`)
	id, err := f.st.CreateReader(context.Background(), model.Reader{EventID: 1, Name: "Portaria", IP: "10.0.0.5", Active: true})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/readers/"+itoa(id)+"/resync", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[resyncResponse](t, rec)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 3, resp.Data.ImagesSent)
	assert.Contains(t, resp.Data.Output, "sincronizando leitor "+itoa(id))

	rec = f.do(t, http.MethodPost, "/api/readers/999/resync", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResyncReaderFailure(t *testing.T) {
	f := newFixture(t, `echo '{"sucesso": false, "mensagem": "Leitor inacessível"}'; exit 1`)
	id, err := f.st.CreateReader(context.Background(), model.Reader{EventID: 1, Name: "Portaria", IP: "10.0.0.5", Active: true})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/readers/"+itoa(id)+"/resync", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[resyncResponse](t, rec)
	assert.Equal(t, "sync failed", resp.Message)
	assert.Equal(t, "Leitor inacessível", resp.Error)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 1, resp.Data.ReturnCode)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, okProcessor)
	personID, err := f.st.CreatePerson(context.Background(), "Ana")
	require.NoError(t, err)
	f.do(t, http.MethodPost, "/api/photos", map[string]any{"evento_id": 1, "pessoa_id": personID, "path_local": "/tmp/a.jpg"})

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "readersync_jobs_enqueued_total 1")
}
