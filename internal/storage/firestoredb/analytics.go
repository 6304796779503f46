package firestoredb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xenking/vitrine/internal/domain/analytics"
)

var _ analytics.Counter = (*AnalyticsRepository)(nil)

// statFields maps a product action to its counter under stats.{productId}.
var statFields = map[analytics.Action]string{
	analytics.ActionFav:  "favs",
	analytics.ActionAdd:  "adds",
	analytics.ActionView: "views",
}

// AnalyticsRepository implements analytics.Counter on Firestore with
// server-side increments:
//
//	stores/{id}/analytics_history/{YYYY-MM-DD}  visits, {hour}, date
//	stores/{id}/analytics/global                totalVisits, visits_{hour},
//	                                            stats.{pid}.{favs|adds|views},
//	                                            totalInteracoes
type AnalyticsRepository struct {
	Client *firestore.Client
}

// NewAnalyticsRepository returns an AnalyticsRepository using client.
func NewAnalyticsRepository(client *firestore.Client) *AnalyticsRepository {
	return &AnalyticsRepository{Client: client}
}

func (r *AnalyticsRepository) globalRef(storeID string) *firestore.DocumentRef {
	return store(r.Client, storeID).Collection(colAnalytics).Doc(docGlobal)
}

// RecordVisit bumps the daily history document and the global totals in
// one batch.
func (r *AnalyticsRepository) RecordVisit(ctx context.Context, storeID string, at time.Time) error {
	hour := strconv.Itoa(at.Hour())
	history := store(r.Client, storeID).Collection(colHistory).Doc(at.Format(time.DateOnly))

	batch := r.Client.Batch()
	batch.Set(history, map[string]any{
		"visits": firestore.Increment(1),
		hour:     firestore.Increment(1),
		"date":   firestore.ServerTimestamp,
	}, firestore.MergeAll)
	batch.Set(r.globalRef(storeID), map[string]any{
		"totalVisits":   firestore.Increment(1),
		"visits_" + hour: firestore.Increment(1),
		"lastUpdate":    firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}
	return nil
}

// IncrementProduct bumps stats.{productId}.{field}. Favorites and cart adds
// also bump totalInteracoes.
func (r *AnalyticsRepository) IncrementProduct(ctx context.Context, storeID, productID string, action analytics.Action, _ time.Time) error {
	field, ok := statFields[action]
	if !ok {
		return errors.Wrap(analytics.ErrUnknownAction, string(action))
	}
	data := map[string]any{
		"stats": map[string]any{productID: map[string]any{field: firestore.Increment(1)}},
	}
	if action != analytics.ActionView {
		data["totalInteracoes"] = firestore.Increment(1)
		data["ultimaInteracao"] = firestore.ServerTimestamp
	}

	_, err := r.globalRef(storeID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("incrementing %s of %q: %w", action, productID, err)
	}
	return nil
}

// Stats reads the global analytics document.
func (r *AnalyticsRepository) Stats(ctx context.Context, storeID string) (*analytics.Stats, error) {
	snap, err := r.globalRef(storeID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, analytics.ErrNoData
		}
		return nil, fmt.Errorf("getting analytics: %w", err)
	}
	return statsFromData(snap.Data()), nil
}

// statsFromData reads both the nested stats map and the flat
// "stats.{pid}.{field}" keys older writers produced.
func statsFromData(data map[string]any) *analytics.Stats {
	s := &analytics.Stats{TotalInteractions: toInt64(data["totalInteracoes"])}
	index := make(map[string]int)
	add := func(productID, field string, v any) {
		i, ok := index[productID]
		if !ok {
			i = len(s.Products)
			index[productID] = i
			s.Products = append(s.Products, analytics.ProductStat{ProductID: productID})
		}
		switch field {
		case "favs":
			s.Products[i].Favs += toInt64(v)
		case "adds":
			s.Products[i].Adds += toInt64(v)
		case "views":
			s.Products[i].Views += toInt64(v)
		}
	}

	if nested, ok := data["stats"].(map[string]any); ok {
		for pid, fields := range nested {
			m, ok := fields.(map[string]any)
			if !ok {
				continue
			}
			for field, v := range m {
				add(pid, field, v)
			}
		}
	}
	for key, v := range data {
		parts := strings.Split(key, ".")
		if len(parts) == 3 && parts[0] == "stats" {
			add(parts[1], parts[2], v)
		}
	}
	return s
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}
