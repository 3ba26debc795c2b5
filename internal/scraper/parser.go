package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/phuslu/log"
	"github.com/vrsandeep/shelfie-go/internal/models"
)

const (
	minDeepSearchText   = 5
	maxDeepSearchText   = 200
	followingPriceXPath = "following::*[contains(@class, 'price') or contains(@data-testid, 'price')][1]"
)

var sizedName = regexp.MustCompile(`(?i)\b\d+\s*(?:g|kg|ml|l|pcs)\b`)

// ParseProducts extracts the product cards of one catalogue page. Profiles
// with a deep search selector fall back to scanning loose elements when the
// cards yield too few products.
func ParseProducts(doc *goquery.Document, p models.StoreProfile, pageURL string) []models.Product {
	base, _ := url.Parse(pageURL)
	products := parseCards(doc, p, base, pageURL)
	if p.DeepSearchSelector != "" && len(products) < p.DeepSearchBelow {
		products = append(products, deepSearch(doc, p, base, pageURL, products)...)
	}
	return products
}

func parseCards(doc *goquery.Document, p models.StoreProfile, base *url.URL, pageURL string) []models.Product {
	var cards *goquery.Selection
	for _, selector := range p.ProductSelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return nil
	}

	products := make([]models.Product, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		nameSel := firstMatch(card, p.NameSelectors)
		if nameSel == nil {
			return
		}
		name := strings.TrimSpace(nameSel.Text())
		if name == "" {
			return
		}

		price := ""
		if priceSel := firstMatch(card, p.PriceSelectors); priceSel != nil {
			price = priceSel.Text()
		}

		link := nameSel
		if p.LinkSelector != "" {
			link = card.Find(p.LinkSelector).First()
		}
		href, ok := link.Attr("href")
		if !ok {
			// The card itself may be the link.
			href, _ = card.Attr("href")
		}

		products = append(products, buildProduct(p, name, price, absoluteURL(base, href), pageURL))
	})
	return products
}

// deepSearch scans the innermost elements matching the profile's deep search
// selector for text that reads like a sized product name ("Peas 900g"). The
// price is the next element after it whose class or test id mentions price.
// Products already in found (same name and size) are skipped.
func deepSearch(doc *goquery.Document, p models.StoreProfile, base *url.URL, pageURL string, found []models.Product) []models.Product {
	seen := make(map[string]bool)
	for _, product := range found {
		seen[productKey(product)] = true
	}

	var products []models.Product
	candidates := doc.Find(p.DeepSearchSelector)
	candidates.Each(func(_ int, el *goquery.Selection) {
		if el.Find(p.DeepSearchSelector).Length() > 0 {
			return
		}
		text := normalizeSpace(el.Text())
		if len(text) < minDeepSearchText || len(text) > maxDeepSearchText || !sizedName.MatchString(text) {
			return
		}

		product := buildProduct(p, text, followingPrice(el), absoluteURL(base, nearestHref(el)), pageURL)
		if seen[text] || seen[productKey(product)] {
			return
		}
		seen[text] = true
		seen[productKey(product)] = true
		products = append(products, product)
	})
	if len(products) > 0 {
		log.Debug().Str("page", pageURL).Int("products", len(products)).Msg("Deep search found extra products")
	}
	return products
}

func productKey(p models.Product) string {
	return p.Name + "\x00" + p.Weight
}

// followingPrice returns the text of the first price element after el in
// document order, or "" when there is none.
func followingPrice(el *goquery.Selection) string {
	if len(el.Nodes) == 0 {
		return ""
	}
	nodes, err := selectXPath(el.Nodes[0], followingPriceXPath)
	if err != nil || len(nodes) == 0 {
		return ""
	}
	return textContent(nodes[0])
}

// nearestHref returns the href of el itself, its closest link ancestor or
// its first link descendant.
func nearestHref(el *goquery.Selection) string {
	if href, ok := el.Closest("a").Attr("href"); ok {
		return href
	}
	href, _ := el.Find("a").First().Attr("href")
	return href
}

// firstMatch returns the first non-empty match of selectors inside s, trying them in order.
func firstMatch(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		found := s.Find(selector).FilterFunction(func(_ int, el *goquery.Selection) bool {
			return strings.TrimSpace(el.Text()) != ""
		}).First()
		if found.Length() > 0 {
			return found
		}
	}
	return nil
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// PageURL returns the address of catalogue page n under base.
func PageURL(base, param string, n int) string {
	if param == "" {
		param = defaultPageParam
	}
	u, err := url.Parse(base)
	if err != nil {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + param + "=" + strconv.Itoa(n)
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}
