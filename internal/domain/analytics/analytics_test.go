package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// --- Mock implementations ---

type mockCounter struct {
	mu       sync.Mutex
	visits   []time.Time
	products map[string]map[Action]int
	failures int
	calls    int
	block    chan struct{}
	stats    *Stats
}

func newMockCounter() *mockCounter {
	return &mockCounter{products: make(map[string]map[Action]int)}
}

func (m *mockCounter) fail() error {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("unavailable")
	}
	return nil
}

func (m *mockCounter) RecordVisit(_ context.Context, _ string, at time.Time) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	m.visits = append(m.visits, at)
	return nil
}

func (m *mockCounter) IncrementProduct(_ context.Context, _, productID string, action Action, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(); err != nil {
		return err
	}
	if m.products[productID] == nil {
		m.products[productID] = make(map[Action]int)
	}
	m.products[productID][action]++
	return nil
}

func (m *mockCounter) Stats(_ context.Context, _ string) (*Stats, error) {
	if m.stats == nil {
		return nil, ErrNoData
	}
	return m.stats, nil
}

// --- Tests ---

func TestParseAction(t *testing.T) {
	for _, s := range []string{"view", "fav", "add"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}
	for _, s := range []string{"", "visit", "favorite"} {
		_, err := ParseAction(s)
		assert.ErrorIs(t, err, ErrUnknownAction, s)
	}
}

func TestRanking(t *testing.T) {
	stats := []ProductStat{
		{ProductID: "c", Favs: 1, Adds: 1},
		{ProductID: "a", Favs: 0, Adds: 2},
		{ProductID: "b", Favs: 5, Adds: 0},
		{ProductID: "z", Views: 40},
	}
	got := Ranking(stats, 10)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{got[0].ProductID, got[1].ProductID, got[2].ProductID})
	assert.Equal(t, int64(5), got[0].Score)

	var many []ProductStat
	for i := range 15 {
		many = append(many, ProductStat{ProductID: string(rune('a' + i)), Adds: int64(i + 1)})
	}
	top := Ranking(many, DefaultRankingSize)
	require.Len(t, top, DefaultRankingSize)
	assert.Equal(t, "o", top[0].ProductID)
}

func TestServiceRanking(t *testing.T) {
	c := newMockCounter()
	svc := NewService(c)

	_, err := svc.Ranking(context.Background(), "loja")
	require.ErrorIs(t, err, ErrNoData)

	c.stats = &Stats{TotalInteractions: 7, Products: []ProductStat{{ProductID: "mug", Favs: 3, Adds: 4}}}
	r, err := svc.Ranking(context.Background(), "loja")
	require.NoError(t, err)
	assert.Equal(t, "loja", r.StoreID)
	assert.Equal(t, int64(7), r.TotalInteractions)
	require.Len(t, r.Ranking, 1)
	assert.Equal(t, int64(7), r.Ranking[0].Score)
}

func TestRecorder_RecordsWithRetry(t *testing.T) {
	c := newMockCounter()
	c.failures = 2
	loc := time.FixedZone("BRT", -3*60*60)
	r := NewRecorder(c, zaptest.NewLogger(t), RecorderConfig{Workers: 1, Attempts: 3, Backoff: time.Millisecond, Location: loc})
	r.Start(context.Background())

	at := time.Date(2026, 5, 1, 2, 0, 0, 0, time.UTC)
	require.True(t, r.Track(Event{StoreID: "loja", Action: ActionVisit, At: at}))
	require.True(t, r.Track(Event{StoreID: "loja", ProductID: "mug", Action: ActionFav, At: at}))
	r.Close()

	require.Len(t, c.visits, 1)
	assert.Equal(t, 23, c.visits[0].Hour(), "hour bucket uses the reporting zone")
	assert.Equal(t, "2026-04-30", c.visits[0].Format(time.DateOnly))
	assert.Equal(t, 1, c.products["mug"][ActionFav])
	assert.Equal(t, 4, c.calls)
}

func TestRecorder_DropsAfterAttempts(t *testing.T) {
	c := newMockCounter()
	c.failures = 10
	r := NewRecorder(c, zaptest.NewLogger(t), RecorderConfig{Workers: 1, Attempts: 2, Backoff: time.Millisecond})
	r.Start(context.Background())

	require.True(t, r.Track(Event{StoreID: "loja", Action: ActionVisit}))
	r.Close()

	assert.Empty(t, c.visits)
	assert.Equal(t, 2, c.calls)
}

func TestRecorder_NeverBlocks(t *testing.T) {
	c := newMockCounter()
	c.block = make(chan struct{})
	r := NewRecorder(c, zaptest.NewLogger(t), RecorderConfig{Workers: 1, QueueSize: 1})
	r.Start(context.Background())

	accepted := 0
	for range 10 {
		if r.Track(Event{StoreID: "loja", Action: ActionVisit}) {
			accepted++
		}
	}
	assert.Less(t, accepted, 10)
	assert.GreaterOrEqual(t, accepted, 1)

	close(c.block)
	r.Close()
	assert.False(t, r.Track(Event{StoreID: "loja", Action: ActionVisit}), "closed recorder drops")
	assert.Len(t, c.visits, accepted)
}
