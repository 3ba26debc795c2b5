package scraper

import "github.com/vrsandeep/shelfie-go/internal/models"

const (
	defaultPageParam  = "page"
	defaultPageSize   = 20
	defaultPagination = ".pagination a, [class*='paging'] a, [class*='pagination'] span, [class*='pagination'] button"
	pageLinkXPath     = "//li/a[contains(@href, 'page=')]"
)

var frozenCategories = []models.Category{
	{Value: "frozen-food", Text: "Frozen Food"},
	{Value: "frozen-desserts", Text: "Frozen Desserts"},
	{Value: "frozen-snacks", Text: "Frozen Snacks"},
	{Value: "frozen-beverages", Text: "Frozen Beverages"},
	{Value: "frozen-vegetables", Text: "Frozen Vegetables"},
	{Value: "frozen-fruits", Text: "Frozen Fruits"},
	{Value: "frozen-meats", Text: "Frozen Meats"},
}

// BuiltinStores returns the profiles of the supported UAE grocery stores.
func BuiltinStores() []models.StoreProfile {
	return []models.StoreProfile{
		{
			ID:         "lulu",
			Name:       "Lulu Hypermarket",
			Website:    "luluhypermarket.com",
			FilePrefix: "lulu",
			DefaultURL: "https://gcc.luluhypermarket.com/en-ae/grocery-food-cupboard-frozen-food-ready-meals-snacks",
			Categories: []models.Category{
				{Value: "grocery-food-cupboard-fresh-food", Text: "Fresh Food"},
				{Value: "grocery-food-cupboard-dairy-eggs", Text: "Dairy & Eggs"},
				{Value: "grocery-food-cupboard-frozen-food-ready-meals-snacks", Text: "Frozen Food & Ready Meals"},
				{Value: "grocery-food-cupboard-beverages", Text: "Beverages"},
				{Value: "grocery-food-cupboard-world-foods", Text: "World Foods"},
				{Value: "grocery-food-cupboard-breakfast-bakery", Text: "Breakfast & Bakery"},
				{Value: "grocery-food-cupboard-canned-food", Text: "Canned Food"},
			},
			PageParam:          defaultPageParam,
			ProductSelectors:   []string{"div.mb-2.flex.max-w-full.flex-col", ".product-item, [class*='product-card']"},
			NameSelectors:      []string{"a[data-testid*='-']", "a[class*='name'], a[class*='title']", "h3, h4"},
			PriceSelectors:     []string{"span[data-testid='product-price']", "span[class*='price'], div[class*='price']"},
			PaginationXPath:    pageLinkXPath,
			PaginationSelector: defaultPagination,
			PageSize:           defaultPageSize,
			MinPages:           DefaultPageCount,
			DeepSearchSelector: "a[href*='/p/'], [class*='product'], [class*='item']",
			DeepSearchBelow:    5,
			KnownBrands: []string{
				"Ashoka", "Al Kabeer", "Sadia", "Americana", "Khazan", "Nabil", "Birds Eye",
				"McCain", "Farm Fresh", "Seara", "Mezban", "Almarai", "Haagen-Dazs", "Lurpak",
				"Al Ain", "Good Seoul", "LuLu", "Cucina", "Samho", "Quorn", "CJ", "Miratorg",
				"Al Areesh", "Haldiram", "Bibigo", "Daim", "Toblerone", "Al Islami", "Amul",
				"Eng Bee Tin", "Doux", "Tamoosh", "Beyond Meat", "Goodfella's", "Faani", "Al Karama",
				"Lean Cuisine", "New York Bakery",
			},
		},
		{
			ID:              "spinneys",
			Name:            "Spinneys",
			Website:         "spinneys.com",
			FilePrefix:      "spinneys",
			DefaultURL:      "https://www.spinneys.com/en-ae/catalogue/category/frozen/ready-meals",
			CategoryBaseURL: "https://www.spinneys.com/en-ae/catalogue/category",
			Categories: []models.Category{
				{Value: "frozen/ready-meals", Text: "Ready Meals"},
				{Value: "frozen/chips-potatoes", Text: "Chips & Potatoes"},
				{Value: "frozen/meat-poultry", Text: "Meat & Poultry"},
				{Value: "frozen/vegetables", Text: "Vegetables"},
				{Value: "frozen/fruits-smoothies", Text: "Fruits & Smoothies"},
				{Value: "frozen/bakery", Text: "Bakery"},
				{Value: "frozen/ice-cream-desserts", Text: "Ice Cream & Desserts"},
			},
			PageParam:          defaultPageParam,
			ProductSelectors:   []string{".product-info"},
			NameSelectors:      []string{".product-name a"},
			PriceSelectors:     []string{".product-price .price"},
			PaginationXPath:    pageLinkXPath,
			PaginationSelector: ".pagination li:not(.next) a",
			PageSize:           defaultPageSize,
		},
		{
			ID:              "unioncoop",
			Name:            "Union Coop",
			Website:         "unioncoop.ae",
			FilePrefix:      "unioncoop",
			DefaultURL:      "https://www.unioncoop.ae/frozen-food-sea-food-butter-ice-cream.html",
			CategoryBaseURL: "https://www.unioncoop.ae/frozen-food-sea-food-butter-ice-cream.html",
			Categories:      frozenCategories,
			PageParam:       defaultPageParam,
			ProductSelectors: []string{"a.result", ".result", "div.hit", ".ais-hits--item", ".product-item"},
			NameSelectors:    []string{"h3.result-title", ".result-title", "h3", "a.name", ".product-name"},
			PriceSelectors: []string{
				".tamayaz.after_special.promotion", ".tamayaz", ".price", ".special-price", ".product-price",
			},
			PaginationXPath:    pageLinkXPath,
			PaginationSelector: ".ais-Pagination-item--page a, .ais-Pagination-item--page, " + defaultPagination,
			PageSize:           defaultPageSize,
			KnownBrands: []string{
				"Trust", "Al Ain", "Emirates", "Almarai", "Al Rawabi", "Nido",
				"Anchor", "Lurpak", "President", "Nadec", "Farm Fresh", "KDD",
				"Luna", "Rainbow", "Al Manar", "Puck", "Kraft", "Kiri", "Delmonte",
				"Heinz", "Americana", "Al Kabeer", "Sadia", "Dairy Queen", "Nestle",
				"Danone", "Arla", "Philadelphia", "Kingdom", "Milky Mist", "Amul",
			},
		},
		{
			ID:              "almeera",
			Name:            "Almeera",
			Website:         "almeera.online",
			FilePrefix:      "almeera",
			DefaultURL:      "https://almeera.online/frozen-food/",
			CategoryBaseURL: "https://almeera.online",
			Categories:      frozenCategories,
			PageParam:       defaultPageParam,
			ProductSelectors: []string{"li.product-cell.box-product, div.product", "div.product-cell, div[class*='product-item']"},
			NameSelectors:    []string{"h5.product-name a, a.product-name, a.fn, a[class*='name']"},
			PriceSelectors:   []string{"span.price.product-price, div.product-price span", "[class*='price']"},
			PaginationXPath:  pageLinkXPath,
			PaginationSelector: "li.item a, a.item, .pager a, " + defaultPagination,
			PageSize:           defaultPageSize,
			KnownBrands: []string{
				"WATTIES", "Al Alali", "American Garden", "Ardo", "Betty Crocker", "Birds Eye",
				"Findus", "Frigo", "Haagen-Dazs", "Iceland", "Kellogg's", "Lurpak", "McCain",
				"Pillsbury", "Sara Lee", "Sadia", "Farm Fresh", "Iglo", "Green Isle", "Americana",
				"Green Giant", "Kiri", "La Vache Qui Rit", "Philadelphia", "Galbani", "Doux",
				"Almarai", "Quorn", "Beyond Meat", "Baskin Robbins", "London Dairy",
			},
		},
	}
}
