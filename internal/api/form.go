package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/vrsandeep/shelfie-go/internal/jobs"
)

const maxFormMemory = 1 << 20

// parseStartRequest reads the start form. Flags follow the browser client:
// only the literal "true" enables a feature.
func parseStartRequest(r *http.Request) (jobs.Request, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return jobs.Request{}, &jobs.ValidationError{Message: "invalid form data"}
	}

	req := jobs.Request{
		StoreType: strings.TrimSpace(r.FormValue("store_type")),
		URL:       strings.TrimSpace(r.FormValue("url")),
		Source:    jobs.SourceWeb,
	}

	switch r.FormValue("url_type") {
	case "custom":
		if req.URL == "" {
			return jobs.Request{}, &jobs.ValidationError{Field: "url", Message: "a custom URL is required"}
		}
	case "default":
		req.URL = ""
	}

	if r.FormValue("use_max_pages") == "true" {
		maxPages := 1
		if raw := strings.TrimSpace(r.FormValue("max_pages")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return jobs.Request{}, &jobs.ValidationError{Field: "max_pages", Message: "must be a whole number"}
			}
			maxPages = n
		}
		if maxPages < 1 {
			return jobs.Request{}, &jobs.ValidationError{Field: "max_pages", Message: "must be at least 1"}
		}
		req.MaxPages = maxPages
	}

	if r.FormValue("use_multi_category") == "true" {
		for _, c := range r.Form["categories[]"] {
			if c = strings.TrimSpace(c); c != "" {
				req.Categories = append(req.Categories, c)
			}
		}
		if len(req.Categories) == 0 {
			return jobs.Request{}, &jobs.ValidationError{Field: "categories", Message: "select at least one category"}
		}
	}

	return req, nil
}
