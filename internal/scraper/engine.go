package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/export"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
	"golang.org/x/time/rate"
)

const (
	// maxEmptyPages ends a category after this many pages in a row without products.
	maxEmptyPages = 3
	// maxPageFailures aborts the run after this many failed page loads in a row.
	maxPageFailures = 3
	// maxProgress is the highest percentage reported before the artifact is saved.
	maxProgress = 95
)

// ErrNoProducts fails a run that finished crawling without products.
var ErrNoProducts = errors.New("no products were extracted")

// ArtifactWriter saves the products of a finished run and returns the file path.
type ArtifactWriter func(dir, filename string, products []models.Product) (string, error)

// Engine crawls store catalogues described by store profiles. It implements jobs.Engine.
type Engine struct {
	registry      *Registry
	fetcher       Fetcher
	outputDir     string
	pageDelay     time.Duration
	categoryDelay time.Duration
	now           func() time.Time
	writeArtifact ArtifactWriter
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithPageDelay sets the minimum pause between page fetches. The actual pause
// is randomised between delay and 2.5x delay.
func WithPageDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.pageDelay = d }
}

// WithCategoryDelay sets the pause between categories.
func WithCategoryDelay(d time.Duration) EngineOption {
	return func(e *Engine) { e.categoryDelay = d }
}

// WithEngineClock overrides the time used in artifact names.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithArtifactWriter replaces the XLSX writer.
func WithArtifactWriter(w ArtifactWriter) EngineOption {
	return func(e *Engine) { e.writeArtifact = w }
}

// NewEngine creates an engine writing artifacts into outputDir.
func NewEngine(registry *Registry, fetcher Fetcher, outputDir string, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:      registry,
		fetcher:       fetcher,
		outputDir:     outputDir,
		pageDelay:     2 * time.Second,
		categoryDelay: 5 * time.Second,
		now:           time.Now,
		writeArtifact: export.WriteXLSX,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type target struct {
	url   string
	label string
}

// progress tracks page counts across all targets of a run.
type progress struct {
	rec     jobs.Recorder
	current int
	total   int
}

func (p *progress) report() {
	percent := 0
	if p.total > 0 {
		percent = p.current * 100 / p.total
	}
	if percent > maxProgress {
		percent = maxProgress
	}
	p.rec.ReportProgress(p.current, p.total, percent)
}

// Run crawls every target of req and saves the artifact.
func (e *Engine) Run(ctx context.Context, req jobs.Request, rec jobs.Recorder) error {
	profile, ok := e.registry.Get(req.StoreType)
	if !ok {
		return fmt.Errorf("unknown store type %q", req.StoreType)
	}

	rec.AppendLog("Starting product extraction...")
	rec.AppendLog("Store: " + profile.Name)
	rec.AppendLog("Extraction URL: " + e.baseURL(profile, req))
	if req.MaxPages > 0 {
		rec.AppendLog(fmt.Sprintf("Pages to extract: %d", req.MaxPages))
	} else {
		rec.AppendLog("Extracting all available pages")
	}

	targets := e.targets(profile, req)
	limiter := e.newLimiter()
	prog := &progress{rec: rec}

	var all []models.Product
	for i, t := range targets {
		if req.MultiCategory() {
			rec.AppendLog(fmt.Sprintf("Starting category %d of %d: %s", i+1, len(targets), t.label))
		}
		products, err := e.scrapeTarget(ctx, profile, req, t, limiter, prog)
		all = append(all, products...)
		if err != nil {
			return err
		}
		if i < len(targets)-1 {
			if err := sleepContext(ctx, e.categoryDelay); err != nil {
				return err
			}
		}
	}

	if len(all) == 0 {
		return ErrNoProducts
	}

	filename := export.ArtifactName(profile.FilePrefix, req.MultiCategory(), e.now())
	path, err := e.writeArtifact(e.outputDir, filename, all)
	if err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	log.Info().Str("path", path).Int("products", len(all)).Msg("Saved scrape artifact")
	rec.AppendLog(fmt.Sprintf("All products saved to file %s", filename))
	rec.Complete(filename)
	return nil
}

func (e *Engine) baseURL(p models.StoreProfile, req jobs.Request) string {
	if req.MultiCategory() && p.CategoryBaseURL != "" {
		return p.CategoryBaseURL
	}
	if req.URL != "" {
		return req.URL
	}
	return p.DefaultURL
}

func (e *Engine) targets(p models.StoreProfile, req jobs.Request) []target {
	if !req.MultiCategory() {
		return []target{{url: e.baseURL(p, req), label: e.baseURL(p, req)}}
	}

	base := strings.TrimRight(e.baseURL(p, req), "/")
	targets := make([]target, 0, len(req.Categories))
	for _, c := range req.Categories {
		label := c
		for _, known := range p.Categories {
			if known.Value == c {
				label = known.Text
				break
			}
		}
		targets = append(targets, target{url: base + "/" + c, label: label})
	}
	return targets
}

func (e *Engine) newLimiter() *rate.Limiter {
	if e.pageDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(e.pageDelay), 1)
}

// politePause waits for the limiter and then a random extra share of the page
// delay so requests do not arrive on a fixed beat.
func (e *Engine) politePause(ctx context.Context, limiter *rate.Limiter) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if e.pageDelay <= 0 {
		return nil
	}
	return sleepContext(ctx, rand.N(e.pageDelay*3/2))
}

func (e *Engine) fetchPage(ctx context.Context, limiter *rate.Limiter, pageURL string) (*goquery.Document, error) {
	if err := e.politePause(ctx, limiter); err != nil {
		return nil, err
	}
	body, err := e.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

func (e *Engine) scrapeTarget(ctx context.Context, p models.StoreProfile, req jobs.Request, t target, limiter *rate.Limiter, prog *progress) ([]models.Product, error) {
	firstURL := PageURL(t.url, p.PageParam, 1)
	first, err := e.fetchPage(ctx, limiter, firstURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to load %s: %w", firstURL, err)
	}

	pages, source := DiscoverTotalPages(first, p, req.MaxPages)
	log.Info().Str("url", t.url).Int("pages", pages).Str("source", source).Msg("Discovered catalogue pages")
	prog.total += pages
	prog.rec.AppendLog(fmt.Sprintf("Total pages: %d", prog.total))
	prog.report()

	var products []models.Product
	empty, failures := 0, 0
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return products, err
		}

		pageURL := PageURL(t.url, p.PageParam, page)
		prog.current++
		prog.report()
		prog.rec.AppendLog(fmt.Sprintf("Extracting page %d of %d", prog.current, prog.total))

		doc := first
		if page > 1 {
			doc, err = e.fetchPage(ctx, limiter, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return products, ctx.Err()
				}
				failures++
				prog.rec.AppendLog(fmt.Sprintf("Error loading page %d: %v", page, err))
				if failures >= maxPageFailures {
					return products, fmt.Errorf("giving up after %d failed pages in a row: %w", failures, err)
				}
				empty++
				if empty >= maxEmptyPages {
					break
				}
				continue
			}
		}
		failures = 0

		found := ParseProducts(doc, p, pageURL)
		prog.rec.AppendLog(fmt.Sprintf("Products found on page %d: %d", page, len(found)))
		if len(found) == 0 {
			empty++
			if empty >= maxEmptyPages {
				prog.rec.AppendLog(fmt.Sprintf("No products on %d pages in a row, moving on", empty))
				break
			}
			continue
		}
		empty = 0
		products = append(products, found...)
		prog.rec.AppendProducts(found)
	}
	return products, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
