// Package extract pulls pricing and upgrade-relation facts out of the
// storefront's background JSON responses. The payloads have no stable
// schema, so the whole decoded document is walked and known keys are
// collected wherever they appear.
package extract

import (
	"bytes"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

// markers is the cheap pre-filter: a response body without any of these
// byte sequences cannot yield facts and is not worth decoding.
var markers = [][]byte{
	[]byte("offerRating"),
	[]byte("upgradeFrom"),
	[]byte("upgradableFrom"),
	[]byte("results"),
	[]byte("product"),
}

// LooksRelevant reports whether a raw JSON body may contain any known keys.
func LooksRelevant(body []byte) bool {
	for _, m := range markers {
		if bytes.Contains(body, m) {
			return true
		}
	}
	return false
}

// OfferRatings collects every (originalPrice, finalPrice) pair found under
// an "offerRating" object anywhere in the document.
func OfferRatings(data any) []models.PricePair {
	var pairs []models.PricePair
	walkOfferRatings(data, &pairs)
	return pairs
}

func walkOfferRatings(data any, out *[]models.PricePair) {
	switch v := data.(type) {
	case map[string]any:
		for k, val := range v {
			if k == "offerRating" {
				if rating, ok := val.(map[string]any); ok {
					pair := models.PricePair{
						Original: stringField(rating, "originalPrice"),
						Final:    stringField(rating, "finalPrice"),
					}
					if !pair.IsZero() {
						*out = append(*out, pair)
					}
					continue
				}
			}
			walkOfferRatings(val, out)
		}
	case []any:
		for _, item := range v {
			walkOfferRatings(item, out)
		}
	}
}

// UpgradeRefs collects predecessor products from "upgradeFrom" /
// "upgradableFrom" values, which the storefront serves either as a single
// object or as a list. Relative URLs are absolutized against origin.
func UpgradeRefs(data any, origin string) []models.UpgradeRef {
	var refs []models.UpgradeRef
	walkUpgradeRefs(data, origin, &refs)
	return refs
}

func walkUpgradeRefs(data any, origin string, out *[]models.UpgradeRef) {
	switch v := data.(type) {
	case map[string]any:
		for k, val := range v {
			if k == "upgradeFrom" || k == "upgradableFrom" {
				switch upg := val.(type) {
				case []any:
					for _, item := range upg {
						if obj, ok := item.(map[string]any); ok {
							*out = append(*out, upgradeRef(obj, origin))
						}
					}
				case map[string]any:
					*out = append(*out, upgradeRef(upg, origin))
				}
				continue
			}
			walkUpgradeRefs(val, origin, out)
		}
	case []any:
		for _, item := range v {
			walkUpgradeRefs(item, origin, out)
		}
	}
}

func upgradeRef(obj map[string]any, origin string) models.UpgradeRef {
	name := stringField(obj, "name")
	if name == "" {
		name = stringField(obj, "title")
	}
	if name == "" {
		name = "Unknown"
	}

	url := stringField(obj, "url")
	if url != "" {
		url = origin + url
	}

	return models.UpgradeRef{Name: name, URL: url}
}

// AssetNames collects product display names: entries of a "results" list
// and "product"/"item" objects carrying a "name".
func AssetNames(data any) []string {
	var names []string
	walkAssetNames(data, &names)
	return names
}

func walkAssetNames(data any, out *[]string) {
	switch v := data.(type) {
	case map[string]any:
		for k, val := range v {
			switch {
			case k == "results":
				if results, ok := val.([]any); ok {
					for _, item := range results {
						if obj, ok := item.(map[string]any); ok {
							if name := stringField(obj, "name"); name != "" {
								*out = append(*out, name)
							}
						}
					}
					continue
				}
				walkAssetNames(val, out)
			case k == "product" || k == "item":
				if obj, ok := val.(map[string]any); ok {
					if name := stringField(obj, "name"); name != "" {
						*out = append(*out, name)
					}
					continue
				}
				walkAssetNames(val, out)
			default:
				walkAssetNames(val, out)
			}
		}
	case []any:
		for _, item := range v {
			walkAssetNames(item, out)
		}
	}
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

// Facts accumulates extraction results for one product page. Response
// handlers fire concurrently, so all access is mutex-guarded. Price pairs
// are deduplicated; upgrade relations keep arrival order; the first
// collected name wins.
type Facts struct {
	origin string

	mu       sync.Mutex
	prices   mapset.Set[models.PricePair]
	upgrades []models.UpgradeRef
	name     string
}

func NewFacts(origin string) *Facts {
	return &Facts{
		origin: origin,
		prices: mapset.NewThreadUnsafeSet[models.PricePair](),
	}
}

// Collect walks one decoded JSON document and folds its facts in.
func (f *Facts) Collect(data any) {
	prices := OfferRatings(data)
	upgrades := UpgradeRefs(data, f.origin)
	names := AssetNames(data)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range prices {
		f.prices.Add(p)
	}
	f.upgrades = append(f.upgrades, upgrades...)
	if f.name == "" && len(names) > 0 {
		f.name = names[0]
	}
}

// Prices returns the deduplicated price pairs, sorted for stable output.
func (f *Facts) Prices() []models.PricePair {
	f.mu.Lock()
	defer f.mu.Unlock()

	pairs := f.prices.ToSlice()
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Original != pairs[j].Original {
			return pairs[i].Original < pairs[j].Original
		}
		return pairs[i].Final < pairs[j].Final
	})
	return pairs
}

func (f *Facts) Upgrades() []models.UpgradeRef {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.UpgradeRef, len(f.upgrades))
	copy(out, f.upgrades)
	return out
}

// Name returns the collected asset name, or fallback when no response
// carried one.
func (f *Facts) Name(fallback string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.name != "" {
		return f.name
	}
	return fallback
}
