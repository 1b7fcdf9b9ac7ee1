package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

var testPublisher = models.Publisher{
	Name: "ARTnGAME",
	URL:  "https://assetstore.unity.com/publishers/6503?pageSize=96",
}

func TestWrapHyperlink(t *testing.T) {
	assert.Equal(t,
		`=HYPERLINK("https://example.com","Example")`,
		WrapHyperlink("https://example.com", "Example"))

	// Empty label falls back to the URL.
	assert.Equal(t,
		`=HYPERLINK("https://example.com","https://example.com")`,
		WrapHyperlink("https://example.com", ""))
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "gaia-pro-2023-12345",
		FallbackName("https://assetstore.unity.com/packages/tools/terrain/gaia-pro-2023-12345"))
}

func TestBuildRowsNoOffer(t *testing.T) {
	res := &models.AssetResult{
		Name:      "Sky Master",
		URL:       "https://assetstore.unity.com/packages/1",
		Publisher: testPublisher,
	}

	rows := BuildRows(res)
	require.Len(t, rows, 1)

	assert.Equal(t,
		"Sky Master | No offerRating found | https://assetstore.unity.com/packages/1",
		rows[0].Text)
	assert.Equal(t, []string{
		"Sky Master", "", "", "", "",
		WrapHyperlink(res.URL, res.Name),
		"ARTnGAME",
		WrapHyperlink(testPublisher.URL, testPublisher.Name),
	}, rows[0].CSV)
}

func TestBuildRowsPricesWithoutUpgrades(t *testing.T) {
	res := &models.AssetResult{
		Name:      "Enviro",
		URL:       "https://assetstore.unity.com/packages/2",
		Prices:    []models.PricePair{{Original: "100", Final: "50"}},
		Publisher: testPublisher,
	}

	rows := BuildRows(res)
	require.Len(t, rows, 1)

	assert.Equal(t,
		"Enviro | Original: 100 | Final: 50 | https://assetstore.unity.com/packages/2",
		rows[0].Text)
	assert.Equal(t, "", rows[0].CSV[3])
	assert.Equal(t, "", rows[0].CSV[4])
}

func TestBuildRowsCrossProduct(t *testing.T) {
	res := &models.AssetResult{
		Name: "Gaia Pro",
		URL:  "https://assetstore.unity.com/packages/3",
		Prices: []models.PricePair{
			{Original: "100", Final: "50"},
			{Original: "80", Final: "40"},
		},
		Upgrades: []models.UpgradeRef{
			{Name: "Gaia", URL: "https://assetstore.unity.com/packages/4"},
			{Name: "Gaia Lite", URL: ""},
		},
		Publisher: testPublisher,
	}

	rows := BuildRows(res)
	require.Len(t, rows, 4)

	assert.Contains(t, rows[0].Text, "Upgrade from: Gaia (https://assetstore.unity.com/packages/4)")
	// Upgrade without a URL gets an empty hyperlink cell.
	assert.Equal(t, "Gaia Lite", rows[1].CSV[3])
	assert.Equal(t, "", rows[1].CSV[4])
}

func TestBuildRowsMissingPricesBecomeNA(t *testing.T) {
	res := &models.AssetResult{
		Name:      "Orion",
		URL:       "https://assetstore.unity.com/packages/5",
		Prices:    []models.PricePair{{Final: "25"}},
		Publisher: testPublisher,
	}

	rows := BuildRows(res)
	require.Len(t, rows, 1)

	assert.Equal(t, "N/A", rows[0].CSV[1])
	assert.Equal(t, "25", rows[0].CSV[2])
	assert.Contains(t, rows[0].Text, "Original: N/A")
}

func TestBuildRowsColumnCount(t *testing.T) {
	results := []*models.AssetResult{
		{Name: "A", URL: "u", Publisher: testPublisher},
		{Name: "B", URL: "u", Prices: []models.PricePair{{Original: "1", Final: "2"}}, Publisher: testPublisher},
		{
			Name:      "C",
			URL:       "u",
			Prices:    []models.PricePair{{Original: "1", Final: "2"}},
			Upgrades:  []models.UpgradeRef{{Name: "Old", URL: "v"}},
			Publisher: testPublisher,
		},
	}

	require.Len(t, CSVHeader, 8)
	for _, res := range results {
		for _, row := range BuildRows(res) {
			assert.Len(t, row.CSV, len(CSVHeader))
		}
	}
}
