package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// CreateNodeHandler добавляет узел в иерархию. Создавать админов
// может только суперадмин; дистрибьюторов и клиентов — админ внутри
// своей ветки.
func CreateNodeHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if p.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	var req struct {
		Name     string      `json:"name" binding:"required"`
		Role     models.Role `json:"role" binding:"required"`
		ParentID string      `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role == models.RoleAdmin && !p.IsSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the super admin can create admins"})
		return
	}

	parentID := req.ParentID
	if parentID == "" {
		parentID = p.NodeID
	}

	scope, err := dir.ResolveScope(p)
	if err != nil {
		respondError(c, err)
		return
	}
	if !scope.Contains(parentID) {
		respondError(c, models.ScopeViolationf("parent %s is outside your branch", parentID))
		return
	}

	node, err := dir.AddNode(req.Name, req.Role, parentID, false)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"node":    node,
	})
}

// ListNodesHandler возвращает дочерние узлы
func ListNodesHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	parentID := c.DefaultQuery("parent_id", p.NodeID)

	scope, err := dir.ResolveScope(p)
	if err != nil {
		respondError(c, err)
		return
	}
	if !scope.Contains(parentID) {
		respondError(c, models.ScopeViolationf("node %s is outside your branch", parentID))
		return
	}

	children, err := dir.Children(parentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"nodes": children,
		"count": len(children),
	})
}

// DeactivateNodeHandler помечает узел неактивным (мягкое удаление,
// история заказов сохраняется)
func DeactivateNodeHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if p.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	nodeID := c.Param("id")
	if nodeID == p.NodeID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot deactivate your own node"})
		return
	}

	scope, err := dir.ResolveScope(p)
	if err != nil {
		respondError(c, err)
		return
	}
	if !scope.Contains(nodeID) {
		respondError(c, models.ScopeViolationf("node %s is outside your branch", nodeID))
		return
	}

	if err := dir.Deactivate(nodeID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReassignParentHandler перевешивает узел под другого родителя
func ReassignParentHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	if p.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}
	nodeID := c.Param("id")

	var req struct {
		NewParentID string `json:"new_parent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scope, err := dir.ResolveScope(p)
	if err != nil {
		respondError(c, err)
		return
	}
	if !scope.Contains(nodeID) || !scope.Contains(req.NewParentID) {
		respondError(c, models.ScopeViolationf("both nodes must be inside your branch"))
		return
	}

	if err := dir.ReassignParent(nodeID, req.NewParentID); err != nil {
		respondError(c, err)
		return
	}

	node, err := dir.Node(nodeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"node":    node,
	})
}
