package models

import "time"

// Роли узлов иерархии: admin → distributor → customer
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
	RoleCustomer    Role = "customer"
)

// TierRank возвращает глубину уровня (admin = 0, customer = 2)
func (r Role) TierRank() int {
	switch r {
	case RoleAdmin:
		return 0
	case RoleDistributor:
		return 1
	case RoleCustomer:
		return 2
	}
	return -1
}

func (r Role) Valid() bool {
	return r.TierRank() >= 0
}

// HierarchyNode — узел трёхуровневого дерева аккаунтов.
// ParentID пустой только у супер-админа. Узлы не удаляются физически,
// пока на них ссылаются заказы — только деактивация.
type HierarchyNode struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	ParentID     string    `json:"parent_id,omitempty"`
	IsSuperAdmin bool      `json:"is_super_admin,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal — аутентифицированный субъект (выдаётся слоем авторизации)
type Principal struct {
	UserID       string `json:"user_id"`
	NodeID       string `json:"node_id"`
	Role         Role   `json:"role"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// Scope — множество узлов, доступных субъекту: сам узел плюс потомки.
// У супер-админа EntireTree = true и списки не заполняются.
type Scope struct {
	Level         Role     `json:"level"`
	NodeID        string   `json:"node_id"`
	DescendantIDs []string `json:"descendant_ids"`
	EntireTree    bool     `json:"entire_tree"`
}

// Contains проверяет, входит ли узел в область видимости
func (s Scope) Contains(nodeID string) bool {
	if s.EntireTree {
		return true
	}
	if s.NodeID == nodeID {
		return true
	}
	for _, id := range s.DescendantIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// UserStats — количество узлов по ролям внутри области видимости
type UserStats struct {
	Total       int `json:"total"`
	Admin       int `json:"admin"`
	Distributor int `json:"distributor"`
	Customer    int `json:"customer"`
}
