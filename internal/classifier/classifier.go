// Package classifier assigns categories, generic names and suggested brands
// to line item text.
package classifier

import (
	"regexp"
	"strings"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

// DefaultCategory applies when no rule and no catalog brand matches
const DefaultCategory = domain.CategoryOther

// Rule maps a keyword set to a category. Keywords may be phrases.
type Rule struct {
	Category string
	Keywords []string
}

// DefaultRules is evaluated top to bottom and the first matching rule wins.
// Merchant rules come first so a receipt header like "restaurant near taxi
// stand" stays a meal expense.
var DefaultRules = []Rule{
	{Category: domain.CategoryMeals, Keywords: []string{"restaurant", "cafe", "fast food", "dining", "lunch", "dinner", "breakfast"}},
	{Category: domain.CategoryAccommodation, Keywords: []string{"hotel", "motel", "inn", "accommodation", "lodging"}},
	{Category: domain.CategoryTravel, Keywords: []string{"airline", "flight", "airport", "boarding"}},
	{Category: domain.CategoryTransportation, Keywords: []string{"taxi", "uber", "lyft", "grab", "transport", "bus", "train", "subway"}},
	{Category: domain.CategoryOfficeSupplies, Keywords: []string{"office", "staples", "supplies", "stationery"}},
	{Category: domain.CategoryTraining, Keywords: []string{"training", "course", "conference", "seminar"}},
	{Category: domain.CategoryCommunication, Keywords: []string{"mobile", "phone", "internet", "communication"}},
	{Category: domain.CategoryCooking, Keywords: []string{"cooking oil", "oil", "mantika", "vinegar", "suka", "soy sauce", "toyo", "patis", "salt", "asin", "sugar", "asukal", "seasoning", "ketchup"}},
	{Category: domain.CategoryDairy, Keywords: []string{"milk", "gatas", "cheese", "butter", "yogurt", "creamer", "evaporada", "condensada"}},
	{Category: domain.CategoryFresh, Keywords: []string{"egg", "eggs", "itlog", "vegetables", "gulay", "fish", "isda", "meat", "karne", "chicken", "manok", "pork", "baboy", "fruit", "prutas", "kangkong", "tomato", "kamatis", "onion", "sibuyas"}},
	{Category: domain.CategoryStaple, Keywords: []string{"rice", "bigas", "flour", "harina"}},
	{Category: domain.CategorySnacks, Keywords: []string{"chips", "chichirya", "biscuit", "biscuits", "cookies", "candy", "kendi", "crackers"}},
	{Category: domain.CategoryFood, Keywords: []string{"noodles", "pancit canton", "sardines", "sardinas", "corned beef", "tuna", "luncheon meat", "bread", "tinapay", "pandesal"}},
	{Category: domain.CategoryBeverage, Keywords: []string{"coke", "cola", "soda", "softdrinks", "juice", "water", "tubig", "coffee", "kape", "tea", "beer", "gin", "rum", "energy drink"}},
}

// LocalTerm is a Filipino product word with its English generic name
type LocalTerm struct {
	Local   string
	Generic string
}

// DefaultLocalTerms maps local product words to generic names
var DefaultLocalTerms = []LocalTerm{
	{Local: "bigas", Generic: "Rice"},
	{Local: "itlog", Generic: "Eggs"},
	{Local: "mantika", Generic: "Cooking Oil"},
	{Local: "asin", Generic: "Salt"},
	{Local: "asukal", Generic: "Sugar"},
	{Local: "gatas", Generic: "Milk"},
	{Local: "tinapay", Generic: "Bread"},
}

// genericKeywords resolves English product words to generic names.
// Longer phrases are listed first.
var genericKeywords = []LocalTerm{
	{Local: "cooking oil", Generic: "Cooking Oil"},
	{Local: "rice", Generic: "Rice"},
	{Local: "eggs", Generic: "Eggs"},
	{Local: "egg", Generic: "Eggs"},
	{Local: "oil", Generic: "Cooking Oil"},
	{Local: "salt", Generic: "Salt"},
	{Local: "sugar", Generic: "Sugar"},
	{Local: "milk", Generic: "Milk"},
	{Local: "bread", Generic: "Bread"},
}

// genericSuggestions is consulted before categorySuggestions
var genericSuggestions = map[string][]string{
	"Rice":        {"Ganador", "Sinandomeng", "Jasmine"},
	"Cooking Oil": {"Baguio", "Minola", "Golden Fiesta"},
	"Eggs":        {"Bounty Fresh", "Magnolia"},
}

var categorySuggestions = map[string][]string{
	domain.CategoryBeverage: {"Coca-Cola", "Pepsi", "RC Cola"},
	domain.CategorySnacks:   {"Jack n Jill", "Oishi", "Regent"},
	domain.CategoryDairy:    {"Alaska", "Bear Brand", "Birch Tree"},
	domain.CategoryFood:     {"Lucky Me", "Nissin", "Payless"},
	domain.CategoryStaple:   {"Ganador", "Sinandomeng", "Jasmine"},
	domain.CategoryFresh:    {"Bounty Fresh", "Magnolia"},
	domain.CategoryCooking:  {"Baguio", "Minola", "Golden Fiesta"},
}

// BrandEntry is a catalog brand with its home category
type BrandEntry struct {
	Name     string
	Category string
	Aliases  []string
}

// DefaultBrands is the known brand catalog
var DefaultBrands = []BrandEntry{
	{Name: "Coca-Cola", Category: domain.CategoryBeverage, Aliases: []string{"coke"}},
	{Name: "Pepsi", Category: domain.CategoryBeverage},
	{Name: "RC Cola", Category: domain.CategoryBeverage},
	{Name: "San Miguel", Category: domain.CategoryBeverage},
	{Name: "Red Horse", Category: domain.CategoryBeverage},
	{Name: "Tanduay", Category: domain.CategoryBeverage},
	{Name: "Nestle", Category: domain.CategoryBeverage},
	{Name: "Lucky Me", Category: domain.CategoryFood},
	{Name: "Nissin", Category: domain.CategoryFood},
	{Name: "Payless", Category: domain.CategoryFood},
	{Name: "Argentina", Category: domain.CategoryFood},
	{Name: "Chippy", Category: domain.CategorySnacks},
	{Name: "Jack n Jill", Category: domain.CategorySnacks, Aliases: []string{"jack and jill"}},
	{Name: "Oishi", Category: domain.CategorySnacks},
	{Name: "Regent", Category: domain.CategorySnacks},
	{Name: "Alaska", Category: domain.CategoryDairy},
	{Name: "Bear Brand", Category: domain.CategoryDairy},
	{Name: "Birch Tree", Category: domain.CategoryDairy},
	{Name: "Magnolia", Category: domain.CategoryDairy},
	{Name: "Bounty Fresh", Category: domain.CategoryFresh},
	{Name: "Ganador", Category: domain.CategoryStaple},
	{Name: "Sinandomeng", Category: domain.CategoryStaple},
	{Name: "Jasmine", Category: domain.CategoryStaple},
	{Name: "Baguio", Category: domain.CategoryCooking},
	{Name: "Minola", Category: domain.CategoryCooking},
	{Name: "Golden Fiesta", Category: domain.CategoryCooking},
}

// Classification is the classifier verdict for one line of text
type Classification struct {
	Category        string
	IsUnbranded     bool
	SuggestedBrands []string
	GenericName     *string
	LocalName       *string
}

type compiledRule struct {
	category string
	expr     *regexp.Regexp
}

type compiledTerm struct {
	term LocalTerm
	expr *regexp.Regexp
}

// Classifier is safe for concurrent use once built
type Classifier struct {
	rules    []compiledRule
	local    []compiledTerm
	generics []compiledTerm
	brands   map[string]BrandEntry
	words    map[string]struct{}
}

// New builds a classifier with the default tables
func New() *Classifier {
	return NewWithRules(DefaultRules)
}

// NewWithRules builds a classifier that evaluates the given rules in order
func NewWithRules(rules []Rule) *Classifier {
	c := &Classifier{
		rules:  make([]compiledRule, 0, len(rules)),
		brands: make(map[string]BrandEntry),
		words:  make(map[string]struct{}),
	}
	for _, r := range rules {
		c.rules = append(c.rules, compiledRule{category: r.Category, expr: wordExpr(r.Keywords...)})
		c.addWords(r.Keywords...)
	}
	for _, t := range DefaultLocalTerms {
		c.local = append(c.local, compiledTerm{term: t, expr: wordExpr(t.Local)})
		c.addWords(t.Local)
	}
	for _, t := range genericKeywords {
		c.generics = append(c.generics, compiledTerm{term: t, expr: wordExpr(t.Local)})
		c.addWords(t.Local)
	}
	for _, b := range DefaultBrands {
		c.brands[brandKey(b.Name)] = b
		c.addWords(b.Name)
		for _, alias := range b.Aliases {
			c.brands[brandKey(alias)] = b
			c.addWords(alias)
		}
	}
	return c
}

func (c *Classifier) addWords(phrases ...string) {
	for _, phrase := range phrases {
		for _, w := range strings.Fields(phrase) {
			c.words[strings.ToLower(w)] = struct{}{}
		}
	}
}

// IsProductWord reports whether word belongs to the product vocabulary:
// rule keywords, local and generic terms, and catalog brand names.
func (c *Classifier) IsProductWord(word string) bool {
	if _, ok := c.words[strings.ToLower(strings.TrimSpace(word))]; ok {
		return true
	}
	_, ok := c.brands[brandKey(word)]
	return ok
}

var defaultClassifier = New()

// Classify classifies text with the default tables
func Classify(text string, knownBrand *string) Classification {
	return defaultClassifier.Classify(text, knownBrand)
}

// Classify resolves the category and brand status of a line of text.
// Brands are never inferred from the text itself: an item is branded only
// when the capture channel supplied a brand.
func (c *Classifier) Classify(text string, knownBrand *string) Classification {
	brand := ""
	if knownBrand != nil {
		brand = strings.TrimSpace(*knownBrand)
	}

	result := Classification{IsUnbranded: brand == ""}

	for _, t := range c.local {
		if t.expr.MatchString(text) {
			local := t.term.Local
			generic := t.term.Generic
			result.LocalName = &local
			result.GenericName = &generic
			break
		}
	}
	if result.GenericName == nil {
		for _, t := range c.generics {
			if t.expr.MatchString(text) {
				generic := t.term.Generic
				result.GenericName = &generic
				break
			}
		}
	}

	result.Category = c.categorize(text, brand)

	if result.IsUnbranded {
		result.SuggestedBrands = c.suggest(result.GenericName, result.Category)
	}
	return result
}

func (c *Classifier) categorize(text, brand string) string {
	for _, r := range c.rules {
		if r.expr.MatchString(text) {
			return r.category
		}
	}
	if brand != "" {
		if entry, ok := c.brands[brandKey(brand)]; ok {
			return entry.Category
		}
	}
	return DefaultCategory
}

func (c *Classifier) suggest(generic *string, category string) []string {
	if generic != nil {
		if brands, ok := genericSuggestions[*generic]; ok {
			return append([]string(nil), brands...)
		}
	}
	if brands, ok := categorySuggestions[category]; ok {
		return append([]string(nil), brands...)
	}
	return nil
}

// CanonicalBrand maps a detected brand string to its catalog spelling.
// Unknown brands are returned trimmed with ok=false.
func (c *Classifier) CanonicalBrand(name string) (string, bool) {
	if entry, ok := c.brands[brandKey(name)]; ok {
		return entry.Name, true
	}
	return strings.TrimSpace(name), false
}

// CanonicalBrand resolves a brand with the default catalog
func CanonicalBrand(name string) (string, bool) {
	return defaultClassifier.CanonicalBrand(name)
}

// BrandCategory returns the catalog category of a brand
func (c *Classifier) BrandCategory(name string) (string, bool) {
	entry, ok := c.brands[brandKey(name)]
	return entry.Category, ok
}

// brandKey folds case and drops punctuation so "Coca Cola" and "COCA-COLA" agree
func brandKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func wordExpr(keywords ...string) *regexp.Regexp {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		words := strings.Fields(kw)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		parts = append(parts, strings.Join(words, `\s+`))
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}
