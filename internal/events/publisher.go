// Package events publishes recorded scrape results to a Redis stream so
// downstream consumers (alerting, dashboards) can react to new discounts
// without tailing the output files.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/upgradewatch/unity-upgrade-scraper/internal/models"
)

const EventTypeDiscountRecorded = "UPGRADE_DISCOUNT_RECORDED"

// RedisClient is the slice of *redis.Client the publisher uses (for tests).
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// DiscountRecordedPayload is the stream entry body.
type DiscountRecordedPayload struct {
	EventID   string              `json:"event_id"`
	EventType string              `json:"event_type"`
	Timestamp time.Time           `json:"timestamp"`
	Asset     string              `json:"asset"`
	AssetURL  string              `json:"asset_url"`
	Publisher string              `json:"publisher"`
	HasOffer  bool                `json:"has_offer"`
	Prices    []models.PricePair  `json:"prices,omitempty"`
	Upgrades  []models.UpgradeRef `json:"upgrades,omitempty"`
}

type Publisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "event_publisher"),
	}
}

// Connect dials Redis and returns a publisher bound to the given stream.
func Connect(ctx context.Context, addr, stream string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewPublisher(client, stream), nil
}

// DiscountFound publishes one stream entry for a recorded asset. Errors are
// logged and swallowed: event delivery must never fail the crawl.
func (p *Publisher) DiscountFound(ctx context.Context, res *models.AssetResult) {
	payload := DiscountRecordedPayload{
		EventID:   uuid.New().String(),
		EventType: EventTypeDiscountRecorded,
		Timestamp: res.VisitedAt,
		Asset:     res.Name,
		AssetURL:  res.URL,
		Publisher: res.Publisher.Name,
		HasOffer:  res.HasOffer(),
		Prices:    res.Prices,
		Upgrades:  res.Upgrades,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal event", "error", err)
		return
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": payload.EventType,
			"payload":    string(data),
		},
	}).Err()
	if err != nil {
		p.logger.Error("failed to publish event", "stream", p.stream, "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
