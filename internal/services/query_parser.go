// internal/services/query_parser.go
package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shopmate/shopmate-backend/internal/models"
)

// QueryParser extracts structured constraints from free-text queries with
// pattern heuristics. False negatives (an unmatched phrasing) are acceptable;
// a wrongly extracted bound is a defect.
type QueryParser struct {
	logger      *logrus.Logger
	maxPatterns []*regexp.Regexp
	minPatterns []*regexp.Regexp
}

// Known category names and product-name tokens, aligned with the built-in
// catalog fixture. Matching is fixed-vocabulary: queries mentioning
// categories or tokens outside these lists simply parse as unconstrained.
var (
	knownCategories = []string{
		"electronics",
		"footwear",
		"clothing",
		"kitchen",
		"home",
		"accessories",
	}

	knownKeywords = []string{
		"airpods",
		"earbuds",
		"macbook",
		"laptop",
		"headphones",
		"sneakers",
		"shoes",
		"jeans",
		"jacket",
		"fleece",
		"cooker",
		"vacuum",
		"bottle",
	}
)

// Price phrasings in priority order; the first matching pattern per
// direction wins. Single-direction bounds only: range phrasings like
// "between $50 and $200" are not recognized.
var (
	maxPricePatterns = []string{
		`(?i)\bunder\s*\$?\s*(\d+(?:\.\d+)?)`,
		`(?i)\bbelow\s*\$?\s*(\d+(?:\.\d+)?)`,
		`(?i)\bless\s+than\s*\$?\s*(\d+(?:\.\d+)?)`,
		`<\s*\$?\s*(\d+(?:\.\d+)?)`,
	}

	minPricePatterns = []string{
		`(?i)\bover\s*\$?\s*(\d+(?:\.\d+)?)`,
		`(?i)\babove\s*\$?\s*(\d+(?:\.\d+)?)`,
		`(?i)\bmore\s+than\s*\$?\s*(\d+(?:\.\d+)?)`,
		`>\s*\$?\s*(\d+(?:\.\d+)?)`,
	}
)

func NewQueryParser(logger *logrus.Logger) *QueryParser {
	p := &QueryParser{logger: logger}
	for _, src := range maxPricePatterns {
		p.maxPatterns = append(p.maxPatterns, regexp.MustCompile(src))
	}
	for _, src := range minPricePatterns {
		p.minPatterns = append(p.minPatterns, regexp.MustCompile(src))
	}
	return p
}

// Parse derives a QueryFilter from one query. Every field is optional; a
// query matching nothing yields an empty filter that restricts nothing.
// The parser never validates bound consistency (min > max is the
// retriever's problem and legitimately yields zero matches).
func (p *QueryParser) Parse(query string) models.QueryFilter {
	filter := models.QueryFilter{}

	if max, ok := firstPriceMatch(p.maxPatterns, query); ok {
		filter.MaxPrice = &max
	}
	if min, ok := firstPriceMatch(p.minPatterns, query); ok {
		filter.MinPrice = &min
	}

	lowered := strings.ToLower(query)

	for _, category := range knownCategories {
		if strings.Contains(lowered, category) {
			filter.Category = category
			break
		}
	}

	for _, keyword := range knownKeywords {
		if strings.Contains(lowered, keyword) {
			filter.Keywords = append(filter.Keywords, keyword)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"query":  query,
		"filter": filter.Describe(),
	}).Debug("Parsed query filter")

	return filter
}

func firstPriceMatch(patterns []*regexp.Regexp, query string) (float64, bool) {
	for _, re := range patterns {
		matches := re.FindStringSubmatch(query)
		if len(matches) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			continue
		}
		return value, true
	}
	return 0, false
}
