package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/shelfie-go/internal/core"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/testutil"
)

// step is one scripted action of the engine. Returning done ends the run with err.
type step func(rec jobs.Recorder) (done bool, err error)

// scriptedEngine runs the steps the test feeds it, one at a time.
type scriptedEngine struct {
	steps chan step
	acks  chan struct{}
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{steps: make(chan step), acks: make(chan struct{})}
}

func (e *scriptedEngine) Run(ctx context.Context, req jobs.Request, rec jobs.Recorder) error {
	for {
		select {
		case s := <-e.steps:
			done, err := s(rec)
			if done {
				return err
			}
			e.acks <- struct{}{}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// do runs s inside the engine and waits until it has been applied.
func (e *scriptedEngine) do(t *testing.T, s func(rec jobs.Recorder)) {
	t.Helper()
	select {
	case e.steps <- func(rec jobs.Recorder) (bool, error) { s(rec); return false, nil }:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not accept step")
	}
	select {
	case <-e.acks:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not apply step")
	}
}

// finish runs s as the last step and ends the run with err.
func (e *scriptedEngine) finish(t *testing.T, s func(rec jobs.Recorder), err error) {
	t.Helper()
	select {
	case e.steps <- func(rec jobs.Recorder) (bool, error) { s(rec); return true, err }:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not accept final step")
	}
}

type testEnv struct {
	app    *core.App
	router http.Handler
	engine *scriptedEngine
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	engine := newScriptedEngine()
	server, app := testutil.SetupTestServer(t, engine)
	return &testEnv{app: app, router: server.Router(), engine: engine}
}

func (env *testEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func (env *testEnv) status(t *testing.T) jobs.StatusView {
	t.Helper()
	rr := env.get(t, "/status")
	require.Equal(t, http.StatusOK, rr.Code)
	var view jobs.StatusView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	return view
}

// wait blocks until the active run is terminal.
func (env *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.app.Runner().Wait(ctx))
}

type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func luluForm() url.Values {
	return url.Values{
		"store_type":    {"Lulu Hypermarket"},
		"url_type":      {"default"},
		"use_max_pages": {"false"},
	}
}
