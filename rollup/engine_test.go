package rollup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// stubSource отдаёт заранее подготовленные заказы, отфильтрованные
// по области — позволяет фиксировать CreatedAt в тестах
type stubSource struct {
	orders []models.Order
}

func (s stubSource) Snapshot(scope models.Scope) []models.Order {
	var out []models.Order
	for _, o := range s.orders {
		if scope.Contains(o.CustomerID) {
			out = append(out, o)
		}
	}
	return out
}

type tree struct {
	dir                *hierarchy.Directory
	admin, dist, dist2 *models.HierarchyNode
	cust, cust2, cust3 *models.HierarchyNode
}

func buildTree(t *testing.T) *tree {
	t.Helper()
	dir := hierarchy.NewDirectory()

	admin, err := dir.AddNode("Head Office", models.RoleAdmin, "", true)
	require.NoError(t, err)
	dist, err := dir.AddNode("Pune Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)
	dist2, err := dir.AddNode("Nagpur Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)
	cust, err := dir.AddNode("Corner Shop", models.RoleCustomer, dist.ID, false)
	require.NoError(t, err)
	cust2, err := dir.AddNode("Second Shop", models.RoleCustomer, dist.ID, false)
	require.NoError(t, err)
	cust3, err := dir.AddNode("Third Shop", models.RoleCustomer, dist2.ID, false)
	require.NoError(t, err)

	return &tree{dir: dir, admin: admin, dist: dist, dist2: dist2, cust: cust, cust2: cust2, cust3: cust3}
}

func order(tr *tree, custID, distID string, total int64, created time.Time) models.Order {
	return models.Order{
		ID:            custID + created.Format("-20060102150405.000"),
		CustomerID:    custID,
		DistributorID: distID,
		AdminID:       tr.admin.ID,
		TotalAmount:   decimal.NewFromInt(total),
		AmountPaid:    decimal.NewFromInt(total / 2), // частичная оплата не должна влиять на выручку
		CreatedAt:     created,
	}
}

func superAdmin(tr *tree) models.Principal {
	return models.Principal{UserID: "u-admin", NodeID: tr.admin.ID, Role: models.RoleAdmin, IsSuperAdmin: true}
}

func TestAggregateBreakdownSumsMatchTotal(t *testing.T) {
	tr := buildTree(t)
	now := time.Now()
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 500, now),
		order(tr, tr.cust2.ID, tr.dist.ID, 300, now),
		order(tr, tr.cust3.ID, tr.dist2.ID, 800, now),
	}}
	e := NewEngine(src, tr.dir)

	res, err := e.Aggregate(superAdmin(tr), LevelDistributor, "", DateFilter{Kind: FilterAll})
	require.NoError(t, err)
	assert.True(t, res.Total.Revenue.Equal(decimal.NewFromInt(1600)))
	assert.Equal(t, 3, res.Total.OrderCount)

	sum := decimal.Zero
	count := 0
	for _, row := range res.Breakdown {
		sum = sum.Add(row.Revenue)
		count += row.OrderCount
	}
	assert.True(t, sum.Equal(res.Total.Revenue))
	assert.Equal(t, res.Total.OrderCount, count)

	// выручка по убыванию
	require.Len(t, res.Breakdown, 2)
	assert.Equal(t, tr.dist2.ID, res.Breakdown[0].NodeID)
	assert.Equal(t, tr.dist.ID, res.Breakdown[1].NodeID)
	assert.Equal(t, "Nagpur Distributor", res.Breakdown[0].Name)
}

func TestAggregateRevenueIgnoresAmountPaid(t *testing.T) {
	tr := buildTree(t)
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 1000, time.Now()),
	}}
	e := NewEngine(src, tr.dir)

	res, err := e.Aggregate(superAdmin(tr), LevelAll, "", DateFilter{Kind: FilterAll})
	require.NoError(t, err)
	// выручка из TotalAmount, собранные платежи — не сюда
	assert.True(t, res.Total.Revenue.Equal(decimal.NewFromInt(1000)))
}

func TestMonthBoundary(t *testing.T) {
	tr := buildTree(t)
	boundary := time.Date(2026, time.January, 31, 23, 59, 59, 0, time.Local)
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 700, boundary),
	}}
	e := NewEngine(src, tr.dir)

	jan, err := e.Aggregate(superAdmin(tr), LevelAll, "", DateFilter{Kind: FilterMonth, Month: 1, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 1, jan.Total.OrderCount)

	feb, err := e.Aggregate(superAdmin(tr), LevelAll, "", DateFilter{Kind: FilterMonth, Month: 2, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 0, feb.Total.OrderCount)
}

func TestCustomFilterInclusiveBounds(t *testing.T) {
	tr := buildTree(t)
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 100, time.Date(2026, time.March, 1, 0, 0, 1, 0, time.Local)),
		order(tr, tr.cust2.ID, tr.dist.ID, 200, time.Date(2026, time.March, 10, 23, 59, 59, 0, time.Local)),
		order(tr, tr.cust3.ID, tr.dist2.ID, 400, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.Local)),
	}}
	e := NewEngine(src, tr.dir)

	res, err := e.Aggregate(superAdmin(tr), LevelAll, "", DateFilter{
		Kind:  FilterCustom,
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local),
		End:   time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)
	// обе границы включительно, по календарным дням
	assert.Equal(t, 2, res.Total.OrderCount)
	assert.True(t, res.Total.Revenue.Equal(decimal.NewFromInt(300)))
}

func TestDateFilterValidate(t *testing.T) {
	assert.Error(t, DateFilter{Kind: FilterMonth, Month: 13, Year: 2026}.Validate())
	assert.Error(t, DateFilter{Kind: FilterMonth, Month: 5}.Validate())
	assert.Error(t, DateFilter{Kind: FilterYear}.Validate())
	assert.Error(t, DateFilter{Kind: FilterCustom}.Validate())
	assert.Error(t, DateFilter{
		Kind:  FilterCustom,
		Start: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.Local),
		End:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local),
	}.Validate())
	assert.NoError(t, DateFilter{Kind: FilterToday}.Validate())
	assert.Error(t, DateFilter{Kind: "weekly"}.Validate())
}

func TestDrillDownConsistency(t *testing.T) {
	tr := buildTree(t)
	now := time.Now()
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 500, now),
		order(tr, tr.cust2.ID, tr.dist.ID, 300, now),
		order(tr, tr.cust3.ID, tr.dist2.ID, 800, now),
	}}
	e := NewEngine(src, tr.dir)

	top, err := e.Aggregate(superAdmin(tr), LevelDistributor, "", DateFilter{})
	require.NoError(t, err)

	// детализация узла совпадает с его строкой на уровне выше
	drill, err := e.Aggregate(superAdmin(tr), LevelCustomer, tr.dist.ID, DateFilter{})
	require.NoError(t, err)
	var distRow Row
	for _, row := range top.Breakdown {
		if row.NodeID == tr.dist.ID {
			distRow = row
		}
	}
	assert.True(t, drill.Total.Revenue.Equal(distRow.Revenue))
	assert.Equal(t, distRow.OrderCount, drill.Total.OrderCount)
}

func TestScopeNeverWidened(t *testing.T) {
	tr := buildTree(t)
	now := time.Now()
	src := stubSource{orders: []models.Order{
		order(tr, tr.cust.ID, tr.dist.ID, 500, now),
		order(tr, tr.cust3.ID, tr.dist2.ID, 800, now),
	}}
	e := NewEngine(src, tr.dir)
	distP := models.Principal{UserID: "u-dist", NodeID: tr.dist.ID, Role: models.RoleDistributor}

	// дистрибьютор видит только свою ветку
	res, err := e.Aggregate(distP, LevelCustomer, "", DateFilter{})
	require.NoError(t, err)
	assert.True(t, res.Total.Revenue.Equal(decimal.NewFromInt(500)))

	// чужая ветка недоступна для детализации
	_, err = e.Aggregate(distP, LevelCustomer, tr.dist2.ID, DateFilter{})
	assert.Equal(t, models.ErrScopeViolation, models.KindOf(err))

	// уровень выше собственного запрещён
	_, err = e.Aggregate(distP, LevelAdmin, "", DateFilter{})
	assert.Equal(t, models.ErrScopeViolation, models.KindOf(err))
}

func TestUserStatsDrillDown(t *testing.T) {
	tr := buildTree(t)
	e := NewEngine(stubSource{}, tr.dir)

	stats, err := e.UserStats(superAdmin(tr), "")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)

	stats, err = e.UserStats(superAdmin(tr), tr.dist.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Customer)
}
