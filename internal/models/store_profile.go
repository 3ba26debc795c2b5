// This file defines the declarative description of a supported store.

package models

// Category is a selectable catalogue section of a store.
type Category struct {
	Value string `json:"value"` // path segment appended to the category base URL
	Text  string `json:"text"`
}

// StoreProfile describes where a store's catalogue lives and how its pages
// are laid out. The scrape engine is driven entirely by these values.
type StoreProfile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"` // matches the store_type form value
	Website         string     `json:"website"`
	FilePrefix      string     `json:"file_prefix"`
	DefaultURL      string     `json:"default_url"`
	CategoryBaseURL string     `json:"category_base_url,omitempty"` // empty means "use the request URL"
	Categories      []Category `json:"categories"`

	// PageParam is the query parameter carrying the page number.
	PageParam string `json:"-"`
	// ProductSelectors match one product card each. The first selector that
	// matches anything on a page wins.
	ProductSelectors []string `json:"-"`
	// NameSelectors and PriceSelectors are tried in order inside a card.
	NameSelectors  []string `json:"-"`
	PriceSelectors []string `json:"-"`
	// LinkSelector finds the product link inside a card. Empty means the
	// matched name element carries the href.
	LinkSelector string `json:"-"`
	// PaginationXPath selects pagination links whose href carries the page number.
	PaginationXPath string `json:"-"`
	// PaginationSelector selects pagination labels holding plain page numbers.
	PaginationSelector string `json:"-"`
	// PageSize is used to turn a "N products" count into a page count.
	PageSize int `json:"-"`
	// MinPages raises an estimated page count (product count or default) to
	// at least this many pages unless max_pages asks for fewer.
	MinPages int `json:"-"`
	// DeepSearchSelector matches loose elements that may hold a product name.
	// It is scanned when the card selectors yield fewer than DeepSearchBelow
	// products on a page.
	DeepSearchSelector string `json:"-"`
	DeepSearchBelow    int    `json:"-"`
	// KnownBrands are matched case-insensitively inside product names.
	KnownBrands []string `json:"-"`
}
