package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

// DefaultPageCount is assumed when a catalogue page gives no pagination hints.
const DefaultPageCount = 5

// Sources of a discovered page count, reported in the run log.
const (
	PagesFromLinks   = "pagination links"
	PagesFromLabels  = "pagination labels"
	PagesFromCount   = "product count"
	PagesFromDefault = "default"
)

var (
	pageNumberInHref = regexp.MustCompile(`page=(\d+)`)
	productCounts    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*items\b`),
		regexp.MustCompile(`(?i)(\d+)\s*products\b`),
		regexp.MustCompile(`(?i)(\d+)\s*results\b`),
		regexp.MustCompile(`(?i)total\s*:\s*(\d+)`),
		regexp.MustCompile(`(?i)showing\s*\d+\s*-\s*\d+\s*of\s*(\d+)`),
		regexp.MustCompile(`(?i)all products\s*\(\s*(\d+)\s*\)`),
	}
)

// DiscoverTotalPages works out how many catalogue pages sit behind the first
// page doc. It tries, in order, the highest page=N pagination link, the highest
// numeric pagination label, a "N products" count divided by the page size, and
// finally DefaultPageCount. Estimated counts (product count or default) are
// raised to p.MinPages unless maxPages asks for fewer. maxPages > 0 caps the
// result.
func DiscoverTotalPages(doc *goquery.Document, p models.StoreProfile, maxPages int) (int, string) {
	pages, source := discoverPages(doc, p)
	estimated := source == PagesFromCount || source == PagesFromDefault
	if estimated && pages < p.MinPages && (maxPages <= 0 || maxPages >= p.MinPages) {
		pages = p.MinPages
	}
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}
	return pages, source
}

func discoverPages(doc *goquery.Document, p models.StoreProfile) (int, string) {
	if n := highestPageLink(doc, p.PaginationXPath); n > 0 {
		return n, PagesFromLinks
	}
	if n := highestPageLabel(doc, p.PaginationSelector); n > 0 {
		return n, PagesFromLabels
	}
	if count := productCount(doc.Text()); count > 0 {
		size := p.PageSize
		if size <= 0 {
			size = defaultPageSize
		}
		return (count + size - 1) / size, PagesFromCount
	}
	return DefaultPageCount, PagesFromDefault
}

func highestPageLink(doc *goquery.Document, expr string) int {
	if expr == "" || len(doc.Nodes) == 0 {
		return 0
	}
	nodes, err := selectXPath(doc.Nodes[0], expr)
	if err != nil {
		log.Warn().Err(err).Msg("Pagination XPath failed")
		return 0
	}

	highest := 0
	for _, n := range nodes {
		href, ok := attr(n, "href")
		if !ok {
			continue
		}
		for _, m := range pageNumberInHref.FindAllStringSubmatch(href, -1) {
			if v, err := strconv.Atoi(m[1]); err == nil && v > highest {
				highest = v
			}
		}
	}
	return highest
}

func highestPageLabel(doc *goquery.Document, selector string) int {
	if selector == "" {
		return 0
	}
	highest := 0
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, err := strconv.Atoi(strings.TrimSpace(s.Text())); err == nil && v > highest {
			highest = v
		}
	})
	return highest
}

func productCount(text string) int {
	highest := 0
	for _, re := range productCounts {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, err := strconv.Atoi(m[1]); err == nil && v > highest {
				highest = v
			}
		}
	}
	return highest
}
