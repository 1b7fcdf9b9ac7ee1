package models

import (
	"time"
)

// Publisher is one entry from publishers.txt: a display name and the
// listing URL of its storefront page (already carrying the pageSize query).
type Publisher struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PricePair is an offerRating observation: original and discounted price.
// Both fields are raw storefront strings and either may be empty.
type PricePair struct {
	Original string `json:"original"`
	Final    string `json:"final"`
}

func (p PricePair) IsZero() bool {
	return p.Original == "" && p.Final == ""
}

// UpgradeRef links an asset to a predecessor product it upgrades from.
type UpgradeRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AssetResult is everything collected for one product page visit.
type AssetResult struct {
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	Prices    []PricePair  `json:"prices"`
	Upgrades  []UpgradeRef `json:"upgrades"`
	Publisher Publisher    `json:"publisher"`
	VisitedAt time.Time    `json:"visited_at"`
}

// HasOffer reports whether the visit produced at least one price pair.
func (r *AssetResult) HasOffer() bool {
	return len(r.Prices) > 0
}
