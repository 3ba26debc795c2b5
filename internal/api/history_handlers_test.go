package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

func TestListStores(t *testing.T) {
	env := setup(t)
	rr := env.get(t, "/api/stores")
	require.Equal(t, http.StatusOK, rr.Code)

	var stores []struct {
		Name       string            `json:"name"`
		Website    string            `json:"website"`
		DefaultURL string            `json:"default_url"`
		Categories []models.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stores))

	names := make([]string, 0, len(stores))
	for _, s := range stores {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.DefaultURL, s.Name)
		assert.NotNil(t, s.Categories, s.Name)
	}
	assert.Equal(t, []string{"Lulu Hypermarket", "Spinneys", "Union Coop", "Almeera"}, names)
	assert.NotContains(t, rr.Body.String(), "selectors")
}

func TestRunHistoryEndpoints(t *testing.T) {
	env := setup(t)

	rr := env.get(t, "/api/runs")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	require.Equal(t, http.StatusOK, env.post(t, "/start_scraping", luluForm()).Code)
	runID := env.status(t).RunID
	require.NotEmpty(t, runID)

	t.Run("Running run cannot be deleted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/runs/"+runID, nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	env.engine.finish(t, func(rec jobs.Recorder) {
		rec.AppendProducts(frozenProducts)
	}, errors.New("failed to load URL: timeout"))
	env.wait(t)

	t.Run("List", func(t *testing.T) {
		rr := env.get(t, "/api/runs?limit=5")
		require.Equal(t, http.StatusOK, rr.Code)
		var runs []models.ScrapeRun
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, runID, runs[0].ID)
		assert.Equal(t, models.RunFailed, runs[0].State)
		assert.Equal(t, "failed to load URL: timeout", runs[0].Error)
	})

	t.Run("Invalid limit", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/runs?limit=abc").Code)
	})

	t.Run("Get", func(t *testing.T) {
		rr := env.get(t, "/api/runs/"+runID)
		require.Equal(t, http.StatusOK, rr.Code)
		var run models.ScrapeRun
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
		assert.Equal(t, "Lulu Hypermarket", run.StoreType)
		assert.Equal(t, 2, run.ProductCount)
	})

	t.Run("Products", func(t *testing.T) {
		rr := env.get(t, "/api/runs/"+runID+"/products")
		require.Equal(t, http.StatusOK, rr.Code)
		var products []models.Product
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &products))
		assert.Equal(t, frozenProducts, products)
	})

	t.Run("Unknown run", func(t *testing.T) {
		rr := env.get(t, "/api/runs/does-not-exist")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "Run not found", body["error"])
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/runs/does-not-exist/products").Code)
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/runs/"+runID, nil)
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, http.StatusNotFound, env.get(t, "/api/runs/"+runID).Code)
	})
}

func TestHealth(t *testing.T) {
	env := setup(t)
	rr := env.get(t, "/api/health")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","scraper_running":false}`, rr.Body.String())
}
