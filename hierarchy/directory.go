// Package hierarchy хранит дерево аккаунтов admin → distributor → customer
// и отвечает на вопросы об областях видимости.
package hierarchy

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// Directory — справочник иерархии. Авторитетное состояние держится
// в памяти, БД используется для загрузки при старте и фоновой записи.
type Directory struct {
	mu    sync.RWMutex
	nodes map[string]*models.HierarchyNode
}

func NewDirectory() *Directory {
	return &Directory{nodes: make(map[string]*models.HierarchyNode)}
}

// Hydrate загружает узлы (например, из PostgreSQL при старте)
func (d *Directory) Hydrate(nodes []models.HierarchyNode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range nodes {
		n := nodes[i]
		d.nodes[n.ID] = &n
	}
}

// validParent проверяет порядок ролей в цепочке родителей:
// у customer родитель distributor или admin, у distributor — admin,
// у admin — admin (супер-админ без родителя)
func validParent(child models.Role, parent models.Role) bool {
	switch child {
	case models.RoleCustomer:
		return parent == models.RoleDistributor || parent == models.RoleAdmin
	case models.RoleDistributor:
		return parent == models.RoleAdmin
	case models.RoleAdmin:
		return parent == models.RoleAdmin
	}
	return false
}

// AddNode создаёт узел. Родитель обязателен для всех, кроме супер-админа.
func (d *Directory) AddNode(name string, role models.Role, parentID string, isSuperAdmin bool) (*models.HierarchyNode, error) {
	if name == "" {
		return nil, models.Validationf("node name is required")
	}
	if !role.Valid() {
		return nil, models.Validationf("unknown role %q", role)
	}
	if isSuperAdmin && role != models.RoleAdmin {
		return nil, models.Validationf("is_super_admin is allowed for admin role only")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if parentID == "" {
		if !isSuperAdmin {
			return nil, models.Validationf("parent is required for non super-admin nodes")
		}
	} else {
		parent, ok := d.nodes[parentID]
		if !ok {
			return nil, models.NotFoundf("parent node %s not found", parentID)
		}
		if !parent.IsActive {
			return nil, models.Validationf("parent node %s is deactivated", parentID)
		}
		if !validParent(role, parent.Role) {
			return nil, models.Validationf("role %s cannot be a child of %s", role, parent.Role)
		}
	}

	node := &models.HierarchyNode{
		ID:           uuid.NewString(),
		Name:         name,
		Role:         role,
		ParentID:     parentID,
		IsSuperAdmin: isSuperAdmin,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	d.nodes[node.ID] = node
	cp := *node
	asyncPersistNode(cp)
	return &cp, nil
}

// Deactivate мягко отключает узел (физическое удаление запрещено,
// пока на узел ссылаются заказы)
func (d *Directory) Deactivate(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.nodes[id]
	if !ok {
		return models.NotFoundf("node %s not found", id)
	}
	node.IsActive = false
	asyncPersistNode(*node)
	return nil
}

// ReassignParent переназначает родителя (только привилегированные
// операции). Глубина дерева фиксирована, но проверка цикла всё равно
// выполняется как защитный инвариант.
func (d *Directory) ReassignParent(id, newParentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	node, ok := d.nodes[id]
	if !ok {
		return models.NotFoundf("node %s not found", id)
	}
	parent, ok := d.nodes[newParentID]
	if !ok {
		return models.NotFoundf("parent node %s not found", newParentID)
	}
	if !validParent(node.Role, parent.Role) {
		return models.Validationf("role %s cannot be a child of %s", node.Role, parent.Role)
	}

	// Цикл: новый родитель не должен быть потомком переносимого узла
	for cur := parent; cur != nil; {
		if cur.ID == node.ID {
			return models.Validationf("reassigning %s under %s would create a cycle", id, newParentID)
		}
		if cur.ParentID == "" {
			break
		}
		cur = d.nodes[cur.ParentID]
	}

	node.ParentID = newParentID
	asyncPersistNode(*node)
	return nil
}

// Node возвращает копию узла
func (d *Directory) Node(id string) (*models.HierarchyNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	node, ok := d.nodes[id]
	if !ok {
		return nil, models.NotFoundf("node %s not found", id)
	}
	cp := *node
	return &cp, nil
}

// NameOf возвращает имя узла ("" если узла нет)
func (d *Directory) NameOf(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if node, ok := d.nodes[id]; ok {
		return node.Name
	}
	return ""
}

// AncestorsOf возвращает цепочку родителей снизу вверх
func (d *Directory) AncestorsOf(id string) ([]models.HierarchyNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	node, ok := d.nodes[id]
	if !ok {
		return nil, models.NotFoundf("node %s not found", id)
	}
	var chain []models.HierarchyNode
	for node.ParentID != "" {
		parent, ok := d.nodes[node.ParentID]
		if !ok {
			break
		}
		chain = append(chain, *parent)
		node = parent
	}
	return chain, nil
}

// ServiceChain возвращает обслуживающего дистрибьютора и админа
// для клиентского узла. Клиент, прикреплённый напрямую к админу,
// обслуживается им же в обеих ролях цепочки.
func (d *Directory) ServiceChain(customerID string) (distributorID, adminID string, err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.nodes[customerID]
	if !ok {
		return "", "", models.NotFoundf("customer node %s not found", customerID)
	}
	if node.Role != models.RoleCustomer {
		return "", "", models.Validationf("node %s is not a customer", customerID)
	}
	parent, ok := d.nodes[node.ParentID]
	if !ok {
		return "", "", models.NotFoundf("parent of customer %s not found", customerID)
	}
	switch parent.Role {
	case models.RoleDistributor:
		distributorID = parent.ID
		adminID = parent.ParentID
	case models.RoleAdmin:
		distributorID = parent.ID
		adminID = parent.ID
	default:
		return "", "", models.Validationf("invalid parent role %s for customer %s", parent.Role, customerID)
	}
	if adminID == "" {
		return "", "", models.Validationf("customer %s has no admin in its chain", customerID)
	}
	return distributorID, adminID, nil
}

// descendantsLocked собирает потомков обходом ограниченной глубины
// (дерево фиксировано тремя уровнями). Вызывать под RLock.
func (d *Directory) descendantsLocked(rootID string) []string {
	var result []string
	frontier := []string{rootID}
	for depth := 0; depth < 3 && len(frontier) > 0; depth++ {
		var next []string
		for _, n := range d.nodes {
			for _, fid := range frontier {
				if n.ParentID == fid {
					result = append(result, n.ID)
					next = append(next, n.ID)
					break
				}
			}
		}
		frontier = next
	}
	sort.Strings(result)
	return result
}

// DescendantsOf возвращает отсортированные ID потомков узла (без самого узла)
func (d *Directory) DescendantsOf(id string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.nodes[id]; !ok {
		return nil, models.NotFoundf("node %s not found", id)
	}
	return d.descendantsLocked(id), nil
}

// ResolveScope вычисляет область видимости субъекта:
// супер-админ видит всё дерево, остальные — себя и потомков
func (d *Directory) ResolveScope(p models.Principal) (models.Scope, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	node, ok := d.nodes[p.NodeID]
	if !ok {
		return models.Scope{}, models.NotFoundf("principal node %s not found", p.NodeID)
	}
	if p.IsSuperAdmin && node.IsSuperAdmin {
		return models.Scope{Level: models.RoleAdmin, NodeID: node.ID, EntireTree: true}, nil
	}
	return models.Scope{
		Level:         node.Role,
		NodeID:        node.ID,
		DescendantIDs: d.descendantsLocked(node.ID),
	}, nil
}

// NarrowScope сужает область до parentID (детализация сверху вниз).
// Узел обязан входить в исходную область — клиентское расширение
// области никогда не допускается.
func (d *Directory) NarrowScope(s models.Scope, parentID string) (models.Scope, error) {
	if !s.Contains(parentID) {
		return models.Scope{}, models.ScopeViolationf("node %s is outside the caller scope", parentID)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	node, ok := d.nodes[parentID]
	if !ok {
		return models.Scope{}, models.NotFoundf("node %s not found", parentID)
	}
	return models.Scope{
		Level:         node.Role,
		NodeID:        node.ID,
		DescendantIDs: d.descendantsLocked(node.ID),
	}, nil
}

// UserStats считает активные узлы по ролям внутри области
func (d *Directory) UserStats(s models.Scope) models.UserStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var stats models.UserStats
	for _, n := range d.nodes {
		if !n.IsActive || !s.Contains(n.ID) {
			continue
		}
		stats.Total++
		switch n.Role {
		case models.RoleAdmin:
			stats.Admin++
		case models.RoleDistributor:
			stats.Distributor++
		case models.RoleCustomer:
			stats.Customer++
		}
	}
	return stats
}

// Children возвращает активных прямых потомков узла
func (d *Directory) Children(id string) ([]models.HierarchyNode, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.nodes[id]; !ok {
		return nil, models.NotFoundf("node %s not found", id)
	}
	var children []models.HierarchyNode
	for _, n := range d.nodes {
		if n.ParentID == id && n.IsActive {
			children = append(children, *n)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

// All возвращает копии всех узлов (для фоновой записи в БД)
func (d *Directory) All() []models.HierarchyNode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes := make([]models.HierarchyNode, 0, len(d.nodes))
	for _, n := range d.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}
