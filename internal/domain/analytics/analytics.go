// Package analytics records storefront visits and product interactions.
// Recording is best-effort: failures are logged and never reach the
// shopper.
package analytics

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// ErrNoData is returned when a store has no recorded interactions.
var ErrNoData = errors.New("no analytics data")

// ErrUnknownAction is returned by ParseAction.
var ErrUnknownAction = errors.New("unknown action")

// Action is a tracked shopper interaction.
type Action string

// Tracked actions.
const (
	ActionView  Action = "view"
	ActionFav   Action = "fav"
	ActionAdd   Action = "add"
	ActionVisit Action = "visit"
)

// ParseAction validates a product action sent by the storefront.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionView, ActionFav, ActionAdd:
		return a, nil
	default:
		return "", errors.Wrap(ErrUnknownAction, s)
	}
}

// Event is one tracked interaction. ProductID is empty for visits.
type Event struct {
	StoreID   string
	ProductID string
	Action    Action
	At        time.Time
}

// ProductStat holds the counters of one product.
type ProductStat struct {
	ProductID string `json:"id"`
	Favs      int64  `json:"favs"`
	Adds      int64  `json:"adds"`
	Views     int64  `json:"views"`
}

// Score ranks products by favorites plus cart adds.
func (s ProductStat) Score() int64 {
	return s.Favs + s.Adds
}

// Stats is the aggregate interaction data of a store.
type Stats struct {
	TotalInteractions int64
	Products          []ProductStat
}

// Counter persists analytics counters. Implementations increment atomically
// in the store; at is already in the reporting time zone.
type Counter interface {
	RecordVisit(ctx context.Context, storeID string, at time.Time) error
	IncrementProduct(ctx context.Context, storeID, productID string, action Action, at time.Time) error
	Stats(ctx context.Context, storeID string) (*Stats, error)
}

// RankEntry is one row of the product ranking.
type RankEntry struct {
	ProductID string `json:"id"`
	Favs      int64  `json:"favs"`
	Adds      int64  `json:"adds"`
	Score     int64  `json:"score"`
}

// Ranking returns the top n products by score. Ties go to the smaller id.
func Ranking(stats []ProductStat, n int) []RankEntry {
	out := make([]RankEntry, 0, len(stats))
	for _, s := range stats {
		if s.Score() == 0 {
			continue
		}
		out = append(out, RankEntry{ProductID: s.ProductID, Favs: s.Favs, Adds: s.Adds, Score: s.Score()})
	}
	slices.SortFunc(out, func(a, b RankEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DefaultRankingSize is the number of products in a ranking report.
const DefaultRankingSize = 10

// Report is the ranking served to merchants.
type Report struct {
	StoreID           string      `json:"store"`
	TotalInteractions int64       `json:"totalInteractions"`
	Ranking           []RankEntry `json:"ranking"`
}

// Service reads analytics reports.
type Service struct {
	counter Counter
}

// NewService creates a Service.
func NewService(counter Counter) *Service {
	return &Service{counter: counter}
}

// Ranking builds the report of storeID.
func (s *Service) Ranking(ctx context.Context, storeID string) (*Report, error) {
	stats, err := s.counter.Stats(ctx, storeID)
	if err != nil {
		return nil, errors.Wrap(err, "read stats")
	}
	return &Report{
		StoreID:           storeID,
		TotalInteractions: stats.TotalInteractions,
		Ranking:           Ranking(stats.Products, DefaultRankingSize),
	}, nil
}
