package scraper

import (
	"regexp"
	"strings"

	"github.com/vrsandeep/shelfie-go/internal/models"
)

var (
	weightPattern     = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*(?:kg|g|ml|l|pcs|pieces|pack|x\d+)\b`)
	trailingWeight    = regexp.MustCompile(`(?i)\s*\b\d+(?:\.\d+)?\s*(?:kg|g|ml|l|pcs|pieces|pack|x\d*)\b.*$`)
	leadingSeparators = regexp.MustCompile(`^[\s\-:]+`)
	whitespaceRuns    = regexp.MustCompile(`\s+`)
	digitPattern      = regexp.MustCompile(`\d`)
)

// ExtractBrand returns the first known brand mentioned in name. Without a
// match it falls back to the leading word, as long as the name has more than
// one word and the leading word carries no digits.
func ExtractBrand(name string, knownBrands []string) string {
	lower := strings.ToLower(name)
	for _, brand := range knownBrands {
		if strings.Contains(lower, strings.ToLower(brand)) {
			return brand
		}
	}

	parts := strings.Fields(name)
	if len(parts) > 1 && !digitPattern.MatchString(parts[0]) {
		return parts[0]
	}
	return models.NotAvailable
}

// ExtractWeight returns the first size or weight token in name, such as
// "400g", "1.5 L" or "x6".
func ExtractWeight(name string) string {
	if m := weightPattern.FindString(name); m != "" {
		return m
	}
	return models.NotAvailable
}

// CleanName removes the brand and the trailing size from a product name.
func CleanName(name, brand string) string {
	clean := normalizeSpace(name)
	if brand != "" && brand != models.NotAvailable {
		// Offsets come from clean itself; lowercasing can change byte lengths.
		brandPattern := regexp.MustCompile("(?i)" + regexp.QuoteMeta(brand))
		if loc := brandPattern.FindStringIndex(clean); loc != nil {
			clean = clean[:loc[0]] + clean[loc[1]:]
			clean = leadingSeparators.ReplaceAllString(clean, "")
		}
	}
	clean = trailingWeight.ReplaceAllString(clean, "")
	clean = normalizeSpace(clean)
	if clean == "" {
		return normalizeSpace(name)
	}
	return clean
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " "))
}

// buildProduct turns the raw card values into a product record.
func buildProduct(p models.StoreProfile, rawName, price, productURL, pageURL string) models.Product {
	rawName = normalizeSpace(rawName)
	brand := ExtractBrand(rawName, p.KnownBrands)
	price = normalizeSpace(price)
	if price == "" {
		price = models.NotAvailable
	}
	return models.Product{
		Name:   CleanName(rawName, brand),
		Brand:  brand,
		Price:  price,
		Weight: ExtractWeight(rawName),
		Store:  p.Website,
		URL:    productURL,
		Page:   pageURL,
	}
}
