package store

import (
	"fmt"
	"strings"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

// CSVHeader is the fixed 8-column output header.
var CSVHeader = []string{
	"Asset Name", "Original Price", "Final Price",
	"Upgrade From", "Upgrade URL", "Asset URL",
	"Publisher Name", "Publisher Page",
}

// Row is one output record: the human-readable pipe-delimited line and the
// matching CSV cells.
type Row struct {
	Text string
	CSV  []string
}

// WrapHyperlink renders a spreadsheet HYPERLINK formula so the CSV opens
// with clickable cells.
func WrapHyperlink(url, label string) string {
	if label == "" {
		label = url
	}
	return fmt.Sprintf(`=HYPERLINK("%s","%s")`, url, label)
}

// FallbackName derives a display name from the last path segment of an
// asset URL, used when no response carried a product name.
func FallbackName(link string) string {
	parts := strings.Split(link, "/")
	return parts[len(parts)-1]
}

// BuildRows expands one asset result into output rows: the cross product of
// its price pairs and upgrade relations, or a single no-offer row.
func BuildRows(res *models.AssetResult) []Row {
	assetHL := WrapHyperlink(res.URL, res.Name)
	pubHL := WrapHyperlink(res.Publisher.URL, res.Publisher.Name)

	if !res.HasOffer() {
		return []Row{{
			Text: fmt.Sprintf("%s | No offerRating found | %s", res.Name, res.URL),
			CSV:  []string{res.Name, "", "", "", "", assetHL, res.Publisher.Name, pubHL},
		}}
	}

	var rows []Row
	for _, pair := range res.Prices {
		orig := orNA(pair.Original)
		final := orNA(pair.Final)

		if len(res.Upgrades) == 0 {
			rows = append(rows, Row{
				Text: fmt.Sprintf("%s | Original: %s | Final: %s | %s",
					res.Name, orig, final, res.URL),
				CSV: []string{res.Name, orig, final, "", "", assetHL, res.Publisher.Name, pubHL},
			})
			continue
		}

		for _, upg := range res.Upgrades {
			upgHL := ""
			if upg.URL != "" {
				upgHL = WrapHyperlink(upg.URL, upg.Name)
			}
			rows = append(rows, Row{
				Text: fmt.Sprintf("%s | Original: %s | Final: %s | Upgrade from: %s (%s) | %s",
					res.Name, orig, final, upg.Name, upg.URL, res.URL),
				CSV: []string{res.Name, orig, final, upg.Name, upgHL, assetHL, res.Publisher.Name, pubHL},
			})
		}
	}

	return rows
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
