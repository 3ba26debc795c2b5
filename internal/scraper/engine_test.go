package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

func testProfile(base string) models.StoreProfile {
	return models.StoreProfile{
		ID:              "teststore",
		Name:            "Test Store",
		Website:         "test.example",
		FilePrefix:      "test",
		DefaultURL:      base + "/catalogue/frozen",
		CategoryBaseURL: base + "/catalogue",
		Categories: []models.Category{
			{Value: "frozen", Text: "Frozen"},
			{Value: "ice-cream", Text: "Ice Cream"},
		},
		PageParam:          "page",
		ProductSelectors:   []string{".product-info"},
		NameSelectors:      []string{".product-name a"},
		PriceSelectors:     []string{".product-price .price"},
		PaginationXPath:    pageLinkXPath,
		PaginationSelector: ".pagination li:not(.next) a",
		PageSize:           20,
		KnownBrands:        []string{"Sadia", "Al Kabeer"},
	}
}

// renderPage builds a catalogue page with one card per name and pagination
// links up to totalPages.
func renderPage(totalPages int, names ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"grid\">")
	for i, name := range names {
		fmt.Fprintf(&b, `<div class="product-info"><div class="product-name"><a href="/p/%d">%s</a></div>`+
			`<div class="product-price"><span class="price">AED %d.50</span></div></div>`, i, name, 10+i)
	}
	b.WriteString(`</div><ul class="pagination">`)
	for p := 1; p <= totalPages; p++ {
		fmt.Fprintf(&b, `<li><a href="?page=%d">%d</a></li>`, p, p)
	}
	b.WriteString(`<li class="next"><a href="?page=2">Next</a></li></ul></body></html>`)
	return b.String()
}

const failPage = "fail"

// catalogueServer serves /catalogue/<category>?page=N from pages.
func catalogueServer(t *testing.T, pages map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/catalogue/", func(w http.ResponseWriter, r *http.Request) {
		list, ok := pages[strings.TrimPrefix(r.URL.Path, "/catalogue/")]
		n, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if !ok || n < 1 || n > len(list) {
			http.NotFound(w, r)
			return
		}
		if list[n-1] == failPage {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, list[n-1])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func engineClock() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, base string, fetcher Fetcher, opts ...EngineOption) (*Engine, string) {
	t.Helper()
	if fetcher == nil {
		f, err := NewHTTPFetcher("shelfie-test", 5*time.Second)
		require.NoError(t, err)
		fetcher = f
	}
	dir := t.TempDir()
	opts = append([]EngineOption{WithPageDelay(0), WithCategoryDelay(0), WithEngineClock(engineClock)}, opts...)
	return NewEngine(NewRegistry(testProfile(base)), fetcher, dir, opts...), dir
}

func runToEnd(t *testing.T, engine *Engine, req jobs.Request) *jobs.Runner {
	t.Helper()
	runner := jobs.NewRunner(engine, jobs.WithValidator(engine.registry.Resolve))
	require.NoError(t, runner.Start(req))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, runner.Wait(ctx))
	return runner
}

func hasLog(logs []string, substr string) bool {
	for _, l := range logs {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func TestEngine_SingleURLRun(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {
			renderPage(3, "Sadia Chicken Nuggets 400g", "Al Kabeer Beef Burger 1kg"),
			renderPage(3, "Frozen Peas 900g", "Spring Rolls 12 pcs"),
			renderPage(3, "Sadia Chicken Franks 340g"),
		},
	})
	engine, dir := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()

	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, 100, v.Progress)
	assert.Equal(t, 3, v.CurrentPage)
	assert.Equal(t, 3, v.TotalPages)
	assert.Equal(t, 5, v.ProductCount)
	require.NotNil(t, v.OutputFile)
	assert.Equal(t, "shelfie_test_products_2024-05-01_09-30-00.xlsx", *v.OutputFile)
	_, err := os.Stat(filepath.Join(dir, *v.OutputFile))
	assert.NoError(t, err)

	first := v.Products[0]
	assert.Equal(t, "Chicken Nuggets", first.Name)
	assert.Equal(t, "Sadia", first.Brand)
	assert.Equal(t, "400g", first.Weight)
	assert.Equal(t, "AED 10.50", first.Price)
	assert.Equal(t, srv.URL+"/p/0", first.URL)
	assert.Equal(t, srv.URL+"/catalogue/frozen?page=1", first.Page)

	assert.True(t, hasLog(v.Logs, "Store: Test Store"))
	assert.True(t, hasLog(v.Logs, "Extracting all available pages"))
	assert.True(t, hasLog(v.Logs, "Total pages: 3"))
	assert.True(t, hasLog(v.Logs, "Extracting page 3 of 3"))
	assert.True(t, hasLog(v.Logs, "All products saved to file shelfie_test_products_2024-05-01_09-30-00.xlsx"))

	snap := runner.Snapshot()
	assert.True(t, snap.ShowNotification)
	assert.Equal(t, "Excel file saved successfully: shelfie_test_products_2024-05-01_09-30-00.xlsx", snap.NotificationMessage)
}

func TestEngine_DefaultURL(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {renderPage(1, "Sadia Chicken Nuggets 400g")},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "teststore"})
	v := runner.Peek()
	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, "Test Store", v.StoreType)
	assert.True(t, hasLog(v.Logs, "Extraction URL: "+srv.URL+"/catalogue/frozen"))
}

func TestEngine_MaxPages(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {
			renderPage(3, "A One 100g", "B Two 200g"),
			renderPage(3, "C Three 300g", "D Four 400g"),
			renderPage(3, "E Five 500g"),
		},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen", MaxPages: 2})
	v := runner.Peek()
	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, 2, v.TotalPages)
	assert.Equal(t, 4, v.ProductCount)
	assert.True(t, hasLog(v.Logs, "Pages to extract: 2"))
}

func TestEngine_MultiCategory(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen":    {renderPage(2, "A One 100g"), renderPage(2, "B Two 200g")},
		"ice-cream": {renderPage(1, "C Three 300ml")},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", Categories: []string{"frozen", "ice-cream"}})
	v := runner.Peek()

	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, 3, v.TotalPages, "page counts accumulate across categories")
	assert.Equal(t, 3, v.CurrentPage)
	assert.Equal(t, 3, v.ProductCount)
	require.NotNil(t, v.OutputFile)
	assert.Equal(t, "shelfie_test_multi_category_2024-05-01_09-30-00.xlsx", *v.OutputFile)
	assert.True(t, hasLog(v.Logs, "Starting category 1 of 2: Frozen"))
	assert.True(t, hasLog(v.Logs, "Starting category 2 of 2: Ice Cream"))
	assert.True(t, hasLog(v.Logs, "Total pages: 3"))
	assert.Equal(t, srv.URL+"/catalogue/ice-cream?page=1", v.Products[2].Page)
}

func TestEngine_FirstPageFailure(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/missing"})
	v := runner.Peek()

	assert.Equal(t, models.RunFailed, v.State)
	assert.Nil(t, v.OutputFile)
	assert.Less(t, v.Progress, 100)
	assert.Contains(t, v.Error, "failed to load")
	assert.Contains(t, v.Error, "404")
	assert.Contains(t, v.Logs[len(v.Logs)-1], "Error: ")
}

func TestEngine_NoProducts(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {renderPage(2), renderPage(2)},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()
	assert.Equal(t, models.RunFailed, v.State)
	assert.Equal(t, ErrNoProducts.Error(), v.Error)
	assert.Nil(t, v.OutputFile)
}

func TestEngine_StopsAfterEmptyPages(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {
			renderPage(6, "A One 100g"),
			renderPage(6), renderPage(6), renderPage(6),
			renderPage(6, "E Five 500g"),
			renderPage(6, "F Six 600g"),
		},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()
	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, 1, v.ProductCount)
	assert.Equal(t, 4, v.CurrentPage)
	assert.True(t, hasLog(v.Logs, "No products on 3 pages in a row"))
}

func TestEngine_ConsecutivePageFailures(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {renderPage(5, "A One 100g", "B Two 200g"), failPage, failPage, failPage, renderPage(5, "E Five 500g")},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()
	assert.Equal(t, models.RunFailed, v.State)
	assert.Contains(t, v.Error, "giving up after 3 failed pages")
	assert.Equal(t, 2, v.ProductCount, "partial products stay visible")
	assert.True(t, hasLog(v.Logs, "Error loading page 2"))
}

func TestEngine_SingleFailedPageIsSkipped(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {renderPage(3, "A One 100g"), failPage, renderPage(3, "C Three 300g")},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()
	assert.Equal(t, models.RunCompleted, v.State)
	assert.Equal(t, 2, v.ProductCount)
}

func TestEngine_ArtifactFailure(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{"frozen": {renderPage(1, "A One 100g")}})
	engine, _ := newTestEngine(t, srv.URL, nil, WithArtifactWriter(func(dir, filename string, products []models.Product) (string, error) {
		return "", errors.New("disk full")
	}))

	runner := runToEnd(t, engine, jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"})
	v := runner.Peek()
	assert.Equal(t, models.RunFailed, v.State)
	assert.Contains(t, v.Error, "disk full")
	assert.Nil(t, v.OutputFile)
	assert.Equal(t, 1, v.ProductCount)
}

func TestEngine_UnknownStore(t *testing.T) {
	engine, _ := newTestEngine(t, "https://shop.example", nil)
	err := engine.Run(context.Background(), jobs.Request{StoreType: "Carrefour"}, &fakeRecorder{})
	assert.Error(t, err)
}

// blockingFetcher serves the first page and then blocks until the run is cancelled.
type blockingFetcher struct {
	first   string
	blocked chan struct{}
	once    sync.Once
	calls   int
	mu      sync.Mutex
}

func (f *blockingFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if call == 1 {
		return f.first, nil
	}
	f.once.Do(func() { close(f.blocked) })
	<-ctx.Done()
	return "", ctx.Err()
}

func TestEngine_Cancel(t *testing.T) {
	fetcher := &blockingFetcher{first: renderPage(4, "A One 100g"), blocked: make(chan struct{})}
	engine, _ := newTestEngine(t, "https://shop.example", fetcher)
	runner := jobs.NewRunner(engine)

	require.NoError(t, runner.Start(jobs.Request{StoreType: "Test Store", URL: "https://shop.example/catalogue/frozen"}))
	select {
	case <-fetcher.blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never reached the second page")
	}
	require.NoError(t, runner.Cancel())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Wait(ctx))

	v := runner.Peek()
	assert.Equal(t, models.RunCancelled, v.State)
	assert.Nil(t, v.OutputFile)
	assert.Equal(t, 1, v.ProductCount)
}

type fakeRecorder struct {
	mu        sync.Mutex
	percents  []int
	logs      []string
	products  []models.Product
	completed string
	failed    string
}

func (r *fakeRecorder) ReportProgress(current, total, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percents = append(r.percents, percent)
}

func (r *fakeRecorder) AppendLog(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, message)
}

func (r *fakeRecorder) AppendProducts(batch []models.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, batch...)
}

func (r *fakeRecorder) Complete(outputFile string) { r.completed = outputFile }
func (r *fakeRecorder) Fail(message string)        { r.failed = message }

func TestEngine_ProgressStaysBelowCompletion(t *testing.T) {
	srv := catalogueServer(t, map[string][]string{
		"frozen": {renderPage(2, "A One 100g"), renderPage(2, "B Two 200g")},
	})
	engine, _ := newTestEngine(t, srv.URL, nil)
	rec := &fakeRecorder{}

	err := engine.Run(context.Background(), jobs.Request{StoreType: "Test Store", URL: srv.URL + "/catalogue/frozen"}, rec)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.percents)
	for _, p := range rec.percents {
		assert.LessOrEqual(t, p, 95)
	}
	assert.Equal(t, 95, rec.percents[len(rec.percents)-1])
	assert.Equal(t, "shelfie_test_products_2024-05-01_09-30-00.xlsx", rec.completed)
	assert.Empty(t, rec.failed)
	assert.Len(t, rec.products, 2)
}
