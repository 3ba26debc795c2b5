package jobs

import (
	"strings"
)

// Request sources recorded in run history.
const (
	SourceWeb      = "web"
	SourceCLI      = "cli"
	SourceSchedule = "schedule"
)

// Request is a validated description of one scrape run.
type Request struct {
	StoreType  string   `json:"store_type"`
	URL        string   `json:"url"`
	MaxPages   int      `json:"max_pages"` // 0 means all available pages
	Categories []string `json:"categories,omitempty"`
	Source     string   `json:"source"`
}

// MultiCategory reports whether the run walks a list of categories instead of URL.
func (r Request) MultiCategory() bool {
	return len(r.Categories) > 0
}

// Validate normalises the request in place and reports the first problem found.
// An empty URL selects the store's default catalogue URL.
func (r *Request) Validate() error {
	r.StoreType = strings.TrimSpace(r.StoreType)
	r.URL = strings.TrimSpace(r.URL)
	if r.StoreType == "" {
		return &ValidationError{Field: "store_type", Message: "store type is required"}
	}
	if r.MaxPages < 0 {
		return &ValidationError{Field: "max_pages", Message: "page limit cannot be negative"}
	}

	categories := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		if c = strings.Trim(strings.TrimSpace(c), "/"); c != "" {
			categories = append(categories, c)
		}
	}
	if len(r.Categories) > 0 && len(categories) == 0 {
		return &ValidationError{Field: "categories", Message: "select at least one category"}
	}
	r.Categories = categories

	if r.URL != "" && !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
		return &ValidationError{Field: "url", Message: "url must start with http:// or https://"}
	}
	if r.Source == "" {
		r.Source = SourceWeb
	}
	return nil
}
