package models

// Product is a single catalogue entry extracted from a store page.
type Product struct {
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Price  string `json:"price"`
	Weight string `json:"weight"`
	Store  string `json:"store"`
	URL    string `json:"url,omitempty"`
	Page   string `json:"page,omitempty"`
}

// NotAvailable is written into product fields the page did not expose.
const NotAvailable = "N/A"
