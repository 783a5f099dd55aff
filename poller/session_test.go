package poller

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

type world struct {
	ldg    *ledger.Ledger
	engine *rollup.Engine
	admin  models.Principal
	dist   models.Principal
	cust   models.Principal
}

func newWorld(t *testing.T) *world {
	t.Helper()
	dir := hierarchy.NewDirectory()

	admin, err := dir.AddNode("Head Office", models.RoleAdmin, "", true)
	require.NoError(t, err)
	dist, err := dir.AddNode("Pune Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)
	cust, err := dir.AddNode("Corner Shop", models.RoleCustomer, dist.ID, false)
	require.NoError(t, err)

	ldg := ledger.NewLedger(dir, "INR")
	return &world{
		ldg:    ldg,
		engine: rollup.NewEngine(ldg, dir),
		admin:  models.Principal{UserID: "u-admin", NodeID: admin.ID, Role: models.RoleAdmin, IsSuperAdmin: true},
		dist:   models.Principal{UserID: "u-dist", NodeID: dist.ID, Role: models.RoleDistributor},
		cust:   models.Principal{UserID: "u-cust", NodeID: cust.ID, Role: models.RoleCustomer},
	}
}

func (w *world) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	o, err := w.ldg.CreateOrder(w.cust, "", []ledger.LineInput{
		{ProductID: "cola-500", Name: "Cola 500ml", Quantity: 5, UnitPrice: decimal.NewFromInt(40)},
	}, time.Now().AddDate(0, 0, 2))
	require.NoError(t, err)
	return o
}

func TestNoEventWhenNothingChanged(t *testing.T) {
	w := newWorld(t)
	w.placeOrder(t)
	s := newSession(w.cust, w.ldg, w.engine, time.Second)

	require.NoError(t, s.PollNow())
	require.NoError(t, s.PollNow())
	assert.Empty(t, s.Events())
}

func TestOneEventPerBatch(t *testing.T) {
	w := newWorld(t)
	s := newSession(w.cust, w.ldg, w.engine, time.Second)
	require.NoError(t, s.PollNow()) // базовый срез

	// пачка из трёх заказов между циклами → ровно одно событие
	w.placeOrder(t)
	w.placeOrder(t)
	w.placeOrder(t)

	require.NoError(t, s.PollNow())
	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "orders", events[0].Type)
	assert.Equal(t, 3, events[0].Delta)

	// очередь очищена
	assert.Empty(t, s.Events())
}

func TestAdminSessionWatchesNotifications(t *testing.T) {
	w := newWorld(t)
	s := newSession(w.admin, w.ldg, w.engine, time.Second)
	require.NoError(t, s.PollNow())

	o := w.placeOrder(t)
	_, err := w.ldg.MarkForTransit(w.dist, []string{o.ID})
	require.NoError(t, err)
	require.NoError(t, s.PollNow())
	// рост числа заказов не рождает событие у админа
	for _, e := range s.Events() {
		assert.NotEqual(t, "notifications", e.Type)
	}

	_, err = w.ldg.SendToAdmin(w.dist, []string{o.ID})
	require.NoError(t, err)
	require.NoError(t, s.PollNow())

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "notifications", events[0].Type)
	assert.Equal(t, 1, events[0].Delta)
}

func TestPollErrorSurfaced(t *testing.T) {
	w := newWorld(t)
	ghost := models.Principal{UserID: "u-ghost", NodeID: "no-such-node", Role: models.RoleCustomer}
	s := newSession(ghost, w.ldg, w.engine, time.Second)

	// принудительный цикл после действия пользователя обязан вернуть сбой
	err := s.PollNow()
	assert.Error(t, err)
	assert.Empty(t, s.Events())
}

func TestOverlappingPollSkipped(t *testing.T) {
	w := newWorld(t)
	s := newSession(w.cust, w.ldg, w.engine, time.Second)
	require.NoError(t, s.PollNow())
	w.placeOrder(t)

	// пока «идёт» цикл, новый пропускается без события
	s.inFlight.Store(true)
	require.NoError(t, s.PollNow())
	assert.Empty(t, s.Events())
	s.inFlight.Store(false)

	require.NoError(t, s.PollNow())
	assert.Len(t, s.Events(), 1)
}

func TestSnapshotTracksAggregation(t *testing.T) {
	w := newWorld(t)
	s := newSession(w.cust, w.ldg, w.engine, time.Second)
	assert.Nil(t, s.Snapshot())

	w.placeOrder(t) // 5*40 = 200, создан сегодня
	require.NoError(t, s.PollNow())

	agg := s.Snapshot()
	require.NotNil(t, agg)
	assert.Equal(t, 1, agg.Total.OrderCount)
	assert.True(t, agg.Total.Revenue.Equal(decimal.NewFromInt(200)))
}

func TestHubSubscribeIdempotent(t *testing.T) {
	w := newWorld(t)
	h := NewHub(w.ldg, w.engine, 50*time.Millisecond)
	defer h.Shutdown()

	s1 := h.Subscribe(w.cust)
	s2 := h.Subscribe(w.cust)
	assert.Same(t, s1, s2)

	got, ok := h.SessionOf(w.cust.UserID)
	require.True(t, ok)
	assert.Same(t, s1, got)

	h.Unsubscribe(w.cust.UserID)
	_, ok = h.SessionOf(w.cust.UserID)
	assert.False(t, ok)
}

func TestHubTickerDeliversEvents(t *testing.T) {
	w := newWorld(t)
	h := NewHub(w.ldg, w.engine, 20*time.Millisecond)
	defer h.Shutdown()

	s := h.Subscribe(w.cust)
	require.NoError(t, s.PollNow())
	w.placeOrder(t)

	// таймерный цикл должен заметить новый заказ
	assert.Eventually(t, func() bool {
		return len(s.Events()) > 0
	}, time.Second, 10*time.Millisecond)
}
