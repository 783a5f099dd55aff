package hierarchy

import (
	"context"

	"go.uber.org/zap"

	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/logging"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// LoadFromDB восстанавливает дерево из PostgreSQL при старте
func (d *Directory) LoadFromDB() error {
	rows, err := database.Pool.Query(context.Background(), `
		SELECT id, name, role, COALESCE(parent_id::text, ''), is_super_admin, is_active, created_at
		FROM hierarchy_nodes`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var nodes []models.HierarchyNode
	for rows.Next() {
		var n models.HierarchyNode
		var role string
		if err := rows.Scan(&n.ID, &n.Name, &role, &n.ParentID, &n.IsSuperAdmin, &n.IsActive, &n.CreatedAt); err != nil {
			return err
		}
		n.Role = models.Role(role)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	d.Hydrate(nodes)
	return nil
}

// asyncPersistNode пишет узел в БД фоном; истина живёт в памяти,
// поэтому ошибка записи только логируется
func asyncPersistNode(n models.HierarchyNode) {
	go func() {
		if err := persistNode(n); err != nil {
			logging.L().Error("persist hierarchy node failed",
				zap.String("node_id", n.ID), zap.Error(err))
		}
	}()
}

func persistNode(n models.HierarchyNode) error {
	if database.Pool == nil {
		return nil
	}
	var parent interface{}
	if n.ParentID != "" {
		parent = n.ParentID
	}
	_, err := database.Pool.Exec(context.Background(), `
		INSERT INTO hierarchy_nodes (id, name, role, parent_id, is_super_admin, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			parent_id = EXCLUDED.parent_id,
			is_active = EXCLUDED.is_active`,
		n.ID, n.Name, string(n.Role), parent, n.IsSuperAdmin, n.IsActive, n.CreatedAt)
	return err
}
