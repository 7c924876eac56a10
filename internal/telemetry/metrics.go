package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the domain instruments recorded by the auction service.
type Metrics struct {
	RunsStarted metric.Int64Counter
	BidsPlaced  metric.Int64Counter
	PlayersSold metric.Int64Counter
	SalePrice   metric.Int64Histogram
}

// NewMetrics registers the auction instruments on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/jensholdgaard/franchise-auction")

	runs, err := meter.Int64Counter("auction.runs.started",
		metric.WithDescription("Auction runs started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating runs counter: %w", err)
	}
	bids, err := meter.Int64Counter("auction.bids.placed",
		metric.WithDescription("Accepted bids, human and AI"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bids counter: %w", err)
	}
	sold, err := meter.Int64Counter("auction.players.sold",
		metric.WithDescription("Players sold"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sold counter: %w", err)
	}
	price, err := meter.Int64Histogram("auction.sale.price",
		metric.WithDescription("Final sale price per player"),
		metric.WithUnit("L"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating price histogram: %w", err)
	}

	return &Metrics{RunsStarted: runs, BidsPlaced: bids, PlayersSold: sold, SalePrice: price}, nil
}
