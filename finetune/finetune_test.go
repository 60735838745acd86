package finetune

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	statuses []string // Retrieve依次返回的状态，最后一个重复
	created  map[string]interface{}
	uploaded string
	polls    int
	limit    string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(file)
		f.uploaded = r.FormValue("purpose") + ":" + string(b)
		_, _ = w.Write([]byte(`{"id":"file-1","object":"file","purpose":"fine-tune","filename":"train.jsonl"}`))

	case r.Method == http.MethodPost && r.URL.Path == "/v1/fine_tuning/jobs":
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		_, _ = w.Write([]byte(`{"id":"ftjob-1","status":"validating_files","model":"gpt-4o-mini-2024-07-18","training_file":"file-1"}`))

	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/events"):
		f.limit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"fine_tuning.job.event","created_at":1,"level":"info","message":"Step 1/10"}],"has_more":false}`))

	case r.Method == http.MethodGet && r.URL.Path == "/v1/fine_tuning/jobs/ftjob-1":
		status := f.statuses[len(f.statuses)-1]
		if f.polls < len(f.statuses) {
			status = f.statuses[f.polls]
		}
		f.polls++
		model := ""
		if status == StatusSucceeded {
			model = "ft:gpt-4o-mini:personal::abc"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "ftjob-1", "object": "fine_tuning.job", "status": status,
			"model": "gpt-4o-mini-2024-07-18", "fine_tuned_model": model, "training_file": "file-1",
		})

	default:
		http.NotFound(w, r)
	}
}

func newClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	c, err := New(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1/"))
	require.NoError(t, err)
	return c
}

func TestNewWithoutKey(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestNewNilHTTPClient(t *testing.T) {
	api := &fakeAPI{statuses: []string{"running"}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c, err := New(WithAPIKey("sk-test"), WithBaseURL(srv.URL+"/v1/"), WithHTTPClient(nil))
	require.NoError(t, err)
	_, err = c.CreateJob(context.Background(), JobSpec{TrainingFile: "file-1", Model: "m"})
	require.NoError(t, err)
}

func TestSubmit(t *testing.T) {
	api := &fakeAPI{statuses: []string{"running"}}
	c := newClient(t, api)

	path := filepath.Join(t.TempDir(), "train.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"messages":[]}`+"\n"), 0o644))

	job, err := c.Submit(context.Background(), path, JobSpec{
		TrainingFile: "ignored",
		Model:        "gpt-4o-mini-2024-07-18",
		Method:       MethodDPO,
		NEpochs:      3,
		LRMultiplier: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "ftjob-1", job.ID)
	assert.False(t, job.Done())
	assert.Equal(t, "fine-tune:{\"messages\":[]}\n", api.uploaded)

	assert.Equal(t, "file-1", api.created["training_file"])
	method := api.created["method"].(map[string]interface{})
	assert.Equal(t, "dpo", method["type"])
	hp := method["dpo"].(map[string]interface{})["hyperparameters"].(map[string]interface{})
	assert.Equal(t, 3.0, hp["n_epochs"])
	assert.Equal(t, 0.1, hp["learning_rate_multiplier"])
}

func TestCreateJobDefaults(t *testing.T) {
	api := &fakeAPI{statuses: []string{"running"}}
	c := newClient(t, api)

	_, err := c.CreateJob(context.Background(), JobSpec{TrainingFile: "file-1", Model: "m"})
	require.NoError(t, err)
	method := api.created["method"].(map[string]interface{})
	assert.Equal(t, "supervised", method["type"])
	hp := method["supervised"].(map[string]interface{})["hyperparameters"].(map[string]interface{})
	assert.Empty(t, hp)

	_, err = c.CreateJob(context.Background(), JobSpec{Method: "lora"})
	assert.ErrorContains(t, err, "unknown fine-tuning method")
}

func TestCreateJobStatusError(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()
	c, err := New(WithAPIKey("sk-wrong"), WithBaseURL(srv.URL+"/v1"))
	require.NoError(t, err)

	_, err = c.CreateJob(context.Background(), JobSpec{TrainingFile: "f", Model: "m"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestWatch(t *testing.T) {
	api := &fakeAPI{statuses: []string{"queued", "running", StatusSucceeded}}
	c := newClient(t, api)

	var seen []string
	job, err := c.Watch(context.Background(), "ftjob-1", time.Millisecond, 2, func(j Job, events []Event) {
		seen = append(seen, j.Status)
		require.Len(t, events, 1)
		assert.Equal(t, "Step 1/10", events[0].Message)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"queued", "running", StatusSucceeded}, seen)
	assert.Equal(t, "ft:gpt-4o-mini:personal::abc", job.FineTunedModel)
	assert.Equal(t, "2", api.limit)
}

func TestWatchCancelled(t *testing.T) {
	c := newClient(t, &fakeAPI{statuses: []string{"running"}})

	ctx, cancel := context.WithCancel(context.Background())
	job, err := c.Watch(ctx, "ftjob-1", time.Hour, 0, func(Job, []Event) { cancel() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "running", job.Status)
}
