package extract

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

const origin = "https://assetstore.unity.com"

func decode(t *testing.T, raw string) any {
	t.Helper()
	var data any
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	return data
}

func TestLooksRelevant(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected bool
	}{
		{"offer rating key", `{"offerRating":{}}`, true},
		{"upgrade key", `{"data":{"upgradableFrom":[]}}`, true},
		{"results key", `{"results":[]}`, true},
		{"product key", `{"product":{}}`, true},
		{"irrelevant payload", `{"session":"abc","locale":"en"}`, false},
		{"empty body", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, LooksRelevant([]byte(tt.body)))
		})
	}
}

func TestOfferRatings(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []models.PricePair
	}{
		{
			name:     "top level",
			body:     `{"offerRating":{"originalPrice":"100","finalPrice":"50"}}`,
			expected: []models.PricePair{{Original: "100", Final: "50"}},
		},
		{
			name: "deeply nested",
			body: `{"data":{"page":{"items":[{"offerRating":{"originalPrice":"20","finalPrice":"10"}}]}}}`,
			expected: []models.PricePair{
				{Original: "20", Final: "10"},
			},
		},
		{
			name: "multiple occurrences at different depths",
			body: `{"a":{"offerRating":{"originalPrice":"1","finalPrice":"2"}},
			        "b":[{"offerRating":{"finalPrice":"3"}}]}`,
			expected: []models.PricePair{
				{Original: "1", Final: "2"},
				{Final: "3"},
			},
		},
		{
			name:     "empty rating is skipped",
			body:     `{"offerRating":{"currency":"USD"}}`,
			expected: nil,
		},
		{
			name:     "non-object rating is skipped",
			body:     `{"offerRating":"4.5"}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OfferRatings(decode(t, tt.body))
			assert.ElementsMatch(t, tt.expected, got)
		})
	}
}

func TestUpgradeRefs(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []models.UpgradeRef
	}{
		{
			name: "list form",
			body: `{"upgradeFrom":[{"name":"Pro Bundle","url":"/packages/123"}]}`,
			expected: []models.UpgradeRef{
				{Name: "Pro Bundle", URL: origin + "/packages/123"},
			},
		},
		{
			name: "object form",
			body: `{"data":{"upgradableFrom":{"title":"Old Pack","url":"/packages/9"}}}`,
			expected: []models.UpgradeRef{
				{Name: "Old Pack", URL: origin + "/packages/9"},
			},
		},
		{
			name:     "name falls back to Unknown",
			body:     `{"upgradeFrom":[{"url":"/packages/5"}]}`,
			expected: []models.UpgradeRef{{Name: "Unknown", URL: origin + "/packages/5"}},
		},
		{
			name:     "missing url stays empty",
			body:     `{"upgradeFrom":[{"name":"Legacy"}]}`,
			expected: []models.UpgradeRef{{Name: "Legacy", URL: ""}},
		},
		{
			name:     "no upgrade keys",
			body:     `{"product":{"name":"Thing"}}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpgradeRefs(decode(t, tt.body), origin)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAssetNames(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []string
	}{
		{
			name:     "results list",
			body:     `{"results":[{"name":"Gaia"},{"name":"Enviro"},{"id":3}]}`,
			expected: []string{"Gaia", "Enviro"},
		},
		{
			name:     "product object",
			body:     `{"data":{"product":{"name":"Vegetation Engine"}}}`,
			expected: []string{"Vegetation Engine"},
		},
		{
			name:     "item object",
			body:     `{"item":{"name":"Sky Master"}}`,
			expected: []string{"Sky Master"},
		},
		{
			name:     "nameless containers yield nothing",
			body:     `{"product":{"id":1},"results":[{"id":2}]}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssetNames(decode(t, tt.body))
			assert.ElementsMatch(t, tt.expected, got)
		})
	}
}

func TestFactsDeduplicatesPrices(t *testing.T) {
	f := NewFacts(origin)

	// Same offer arrives in several responses.
	for i := 0; i < 3; i++ {
		f.Collect(decode(t, `{"offerRating":{"originalPrice":"100","finalPrice":"50"}}`))
	}
	f.Collect(decode(t, `{"offerRating":{"originalPrice":"80","finalPrice":"40"}}`))

	assert.Equal(t, []models.PricePair{
		{Original: "100", Final: "50"},
		{Original: "80", Final: "40"},
	}, f.Prices())
}

func TestFactsPricesAreSorted(t *testing.T) {
	f := NewFacts(origin)
	f.Collect(decode(t, `{"offerRating":{"originalPrice":"9","finalPrice":"5"}}`))
	f.Collect(decode(t, `{"offerRating":{"originalPrice":"1","finalPrice":"1"}}`))
	f.Collect(decode(t, `{"offerRating":{"originalPrice":"5","finalPrice":"2"}}`))

	got := f.Prices()
	require.Len(t, got, 3)
	assert.Equal(t, "1", got[0].Original)
	assert.Equal(t, "5", got[1].Original)
	assert.Equal(t, "9", got[2].Original)
}

func TestFactsFirstNameWins(t *testing.T) {
	f := NewFacts(origin)
	f.Collect(decode(t, `{"product":{"name":"First"}}`))
	f.Collect(decode(t, `{"product":{"name":"Second"}}`))

	assert.Equal(t, "First", f.Name("fallback"))
}

func TestFactsNameFallback(t *testing.T) {
	f := NewFacts(origin)
	f.Collect(decode(t, `{"results":[]}`))

	assert.Equal(t, "fallback", f.Name("fallback"))
}

func TestFactsConcurrentCollect(t *testing.T) {
	f := NewFacts(origin)

	data := decode(t, `{"offerRating":{"originalPrice":"100","finalPrice":"50"},
		"upgradeFrom":[{"name":"Old","url":"/packages/1"}]}`)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Collect(data)
		}()
	}
	wg.Wait()

	assert.Len(t, f.Prices(), 1)
	assert.Len(t, f.Upgrades(), 20)
}
