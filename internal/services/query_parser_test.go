// internal/services/query_parser_test.go
package services

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestParseMaxPricePhrasings(t *testing.T) {
	parser := NewQueryParser(testLogger())

	queries := []string{
		"show me electronics under $300",
		"anything below 300 dollars",
		"less than $300 please",
		"electronics < $300",
		"UNDER $300",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			filter := parser.Parse(query)
			require.NotNil(t, filter.MaxPrice, "expected a max price bound")
			assert.Equal(t, 300.0, *filter.MaxPrice)
			assert.Nil(t, filter.MinPrice)
		})
	}
}

func TestParseMinPricePhrasings(t *testing.T) {
	parser := NewQueryParser(testLogger())

	queries := []string{
		"something over $100",
		"above 100 bucks",
		"more than $100",
		"price > 100",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			filter := parser.Parse(query)
			require.NotNil(t, filter.MinPrice, "expected a min price bound")
			assert.Equal(t, 100.0, *filter.MinPrice)
			assert.Nil(t, filter.MaxPrice)
		})
	}
}

func TestParseBothBounds(t *testing.T) {
	parser := NewQueryParser(testLogger())

	filter := parser.Parse("over $50 and under $200")
	require.NotNil(t, filter.MinPrice)
	require.NotNil(t, filter.MaxPrice)
	assert.Equal(t, 50.0, *filter.MinPrice)
	assert.Equal(t, 200.0, *filter.MaxPrice)
}

func TestParseDecimalPrice(t *testing.T) {
	parser := NewQueryParser(testLogger())

	filter := parser.Parse("under $99.95")
	require.NotNil(t, filter.MaxPrice)
	assert.Equal(t, 99.95, *filter.MaxPrice)
}

func TestParseFirstPhrasingWins(t *testing.T) {
	parser := NewQueryParser(testLogger())

	// "under" outranks "below" regardless of position in the query.
	filter := parser.Parse("below $500 or under $300")
	require.NotNil(t, filter.MaxPrice)
	assert.Equal(t, 300.0, *filter.MaxPrice)
}

func TestParseCategory(t *testing.T) {
	parser := NewQueryParser(testLogger())

	filter := parser.Parse("show me Electronics under $300")
	assert.Equal(t, "electronics", filter.Category)

	filter = parser.Parse("any good running gear?")
	assert.Empty(t, filter.Category)
}

func TestParseKeywords(t *testing.T) {
	parser := NewQueryParser(testLogger())

	filter := parser.Parse("do you have AirPods or a MacBook?")
	assert.Equal(t, []string{"airpods", "macbook"}, filter.Keywords)

	filter = parser.Parse("what is your return policy?")
	assert.Empty(t, filter.Keywords)
}

func TestParseUnconstrainedQuery(t *testing.T) {
	parser := NewQueryParser(testLogger())

	filter := parser.Parse("what do you recommend as a gift?")
	assert.True(t, filter.IsEmpty())
}

func TestParseDoesNotInventBounds(t *testing.T) {
	parser := NewQueryParser(testLogger())

	// A bare number without a direction phrase is not a price constraint.
	filter := parser.Parse("I have 300 dollars")
	assert.Nil(t, filter.MinPrice)
	assert.Nil(t, filter.MaxPrice)
}

func TestParseAllowsInvertedBounds(t *testing.T) {
	parser := NewQueryParser(testLogger())

	// The parser extracts faithfully; consistency is the retriever's problem.
	filter := parser.Parse("over $500 but under $100")
	require.NotNil(t, filter.MinPrice)
	require.NotNil(t, filter.MaxPrice)
	assert.Greater(t, *filter.MinPrice, *filter.MaxPrice)
}
