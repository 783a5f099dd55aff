// Package rollup считает выручку и количество заказов по уровням
// иерархии с фильтрами по дате. Результаты не кэшируются между
// запросами — заказы меняются непрерывно.
package rollup

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// Уровень детализации сводки
type Level string

const (
	LevelAll         Level = "all"
	LevelAdmin       Level = "admin"
	LevelDistributor Level = "distributor"
	LevelCustomer    Level = "customer"
)

func (l Level) role() models.Role {
	return models.Role(string(l))
}

// Виды фильтра по дате создания заказа
type FilterKind string

const (
	FilterAll       FilterKind = "all"
	FilterToday     FilterKind = "today"
	FilterThisMonth FilterKind = "this_month"
	FilterThisYear  FilterKind = "this_year"
	FilterMonth     FilterKind = "month"
	FilterYear      FilterKind = "year"
	FilterCustom    FilterKind = "custom"
)

// DateFilter отбирает заказы по метке времени создания
// (не по дате доставки)
type DateFilter struct {
	Kind  FilterKind
	Month int       // для Kind == month (1-12)
	Year  int       // для Kind == month / year
	Start time.Time // для Kind == custom, включительно
	End   time.Time // для Kind == custom, включительно
}

func (f DateFilter) Validate() error {
	switch f.Kind {
	case FilterAll, FilterToday, FilterThisMonth, FilterThisYear, "":
		return nil
	case FilterMonth:
		if f.Month < 1 || f.Month > 12 {
			return models.Validationf("month must be between 1 and 12")
		}
		if f.Year <= 0 {
			return models.Validationf("year is required for month filter")
		}
		return nil
	case FilterYear:
		if f.Year <= 0 {
			return models.Validationf("year is required")
		}
		return nil
	case FilterCustom:
		if f.Start.IsZero() || f.End.IsZero() {
			return models.Validationf("start_date and end_date are required")
		}
		if f.End.Before(f.Start) {
			return models.Validationf("end_date must not precede start_date")
		}
		return nil
	}
	return models.Validationf("unknown date filter %q", f.Kind)
}

// Matches сравнивает календарные поля в локальном времени
func (f DateFilter) Matches(created, now time.Time) bool {
	switch f.Kind {
	case FilterAll, "":
		return true
	case FilterToday:
		cy, cm, cd := created.Date()
		ny, nm, nd := now.Date()
		return cy == ny && cm == nm && cd == nd
	case FilterThisMonth:
		cy, cm, _ := created.Date()
		ny, nm, _ := now.Date()
		return cy == ny && cm == nm
	case FilterThisYear:
		return created.Year() == now.Year()
	case FilterMonth:
		return created.Year() == f.Year && int(created.Month()) == f.Month
	case FilterYear:
		return created.Year() == f.Year
	case FilterCustom:
		// Границы включительно, сравнение по календарным дням
		day := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, created.Location())
		start := time.Date(f.Start.Year(), f.Start.Month(), f.Start.Day(), 0, 0, 0, 0, created.Location())
		end := time.Date(f.End.Year(), f.End.Month(), f.End.Day(), 0, 0, 0, 0, created.Location())
		return !day.Before(start) && !day.After(end)
	}
	return false
}

// Totals — выручка и количество заказов. Выручка считается из
// TotalAmount: собранные платежи (AmountPaid) — отдельная метрика,
// этот движок её не смешивает.
type Totals struct {
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"order_count"`
}

// Row — строка детализации по одному узлу
type Row struct {
	NodeID     string          `json:"node_id"`
	Name       string          `json:"name"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int             `json:"order_count"`
}

type Result struct {
	Total     Totals `json:"total"`
	Breakdown []Row  `json:"breakdown"`
}

// OrderSource отдаёт согласованный срез заказов области
type OrderSource interface {
	Snapshot(scope models.Scope) []models.Order
}

type Engine struct {
	src OrderSource
	dir *hierarchy.Directory
}

func NewEngine(src OrderSource, dir *hierarchy.Directory) *Engine {
	return &Engine{src: src, dir: dir}
}

// nodeAtTier атрибуцирует заказ ровно одному узлу уровня через
// цепочку customer → distributor → admin, снятую при создании
func nodeAtTier(o models.Order, tier models.Role) string {
	switch tier {
	case models.RoleAdmin:
		return o.AdminID
	case models.RoleDistributor:
		return o.DistributorID
	case models.RoleCustomer:
		return o.CustomerID
	}
	return ""
}

// Aggregate считает сводку по области субъекта. parentID сужает
// область для детализации; область никогда не расширяется сверх
// разрешённой субъекту. Уровень детализации не может быть выше
// собственного уровня субъекта.
func (e *Engine) Aggregate(p models.Principal, level Level, parentID string, f DateFilter) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if level == "" {
		level = LevelAll
	}

	scope, err := e.dir.ResolveScope(p)
	if err != nil {
		return nil, err
	}
	if parentID != "" && parentID != scope.NodeID {
		scope, err = e.dir.NarrowScope(scope, parentID)
		if err != nil {
			return nil, err
		}
	}

	if level != LevelAll {
		tier := level.role()
		if !tier.Valid() {
			return nil, models.Validationf("unknown scope level %q", level)
		}
		if tier.TierRank() < scope.Level.TierRank() {
			return nil, models.ScopeViolationf("level %s is above the caller tier", level)
		}
	}

	now := time.Now()
	orders := e.src.Snapshot(scope)

	result := &Result{Total: Totals{Revenue: decimal.Zero}}
	buckets := make(map[string]*Row)

	for _, o := range orders {
		if !f.Matches(o.CreatedAt, now) {
			continue
		}
		result.Total.Revenue = result.Total.Revenue.Add(o.TotalAmount)
		result.Total.OrderCount++

		if level == LevelAll {
			continue
		}
		nodeID := nodeAtTier(o, level.role())
		if nodeID == "" {
			continue
		}
		row, ok := buckets[nodeID]
		if !ok {
			row = &Row{NodeID: nodeID, Name: e.dir.NameOf(nodeID), Revenue: decimal.Zero}
			buckets[nodeID] = row
		}
		row.Revenue = row.Revenue.Add(o.TotalAmount)
		row.OrderCount++
	}

	if level != LevelAll {
		rows := make([]Row, 0, len(buckets))
		for _, row := range buckets {
			rows = append(rows, *row)
		}
		// Выручка по убыванию, при равенстве — по nodeId для детерминизма
		sort.Slice(rows, func(i, j int) bool {
			cmp := rows[i].Revenue.Cmp(rows[j].Revenue)
			if cmp != 0 {
				return cmp > 0
			}
			return rows[i].NodeID < rows[j].NodeID
		})
		result.Breakdown = rows
	}
	return result, nil
}

// UserStats считает узлы по ролям внутри области (с опциональной
// детализацией по parentID)
func (e *Engine) UserStats(p models.Principal, parentID string) (*models.UserStats, error) {
	scope, err := e.dir.ResolveScope(p)
	if err != nil {
		return nil, err
	}
	if parentID != "" && parentID != scope.NodeID {
		scope, err = e.dir.NarrowScope(scope, parentID)
		if err != nil {
			return nil, err
		}
	}
	stats := e.dir.UserStats(scope)
	return &stats, nil
}
