package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// buildTree собирает типовое дерево:
// головной офис → дистрибьютор → клиент, плюс клиент напрямую под админом
func buildTree(t *testing.T) (d *Directory, admin, dist, cust, directCust *models.HierarchyNode) {
	t.Helper()
	d = NewDirectory()

	var err error
	admin, err = d.AddNode("Head Office", models.RoleAdmin, "", true)
	require.NoError(t, err)

	dist, err = d.AddNode("Pune Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)

	cust, err = d.AddNode("Corner Shop", models.RoleCustomer, dist.ID, false)
	require.NoError(t, err)

	directCust, err = d.AddNode("Walk-in Client", models.RoleCustomer, admin.ID, false)
	require.NoError(t, err)

	return d, admin, dist, cust, directCust
}

func TestAddNodeRoleOrder(t *testing.T) {
	d, admin, dist, cust, _ := buildTree(t)

	// дистрибьютор не может висеть под клиентом
	_, err := d.AddNode("Bad Dist", models.RoleDistributor, cust.ID, false)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))

	// клиент не может висеть под клиентом
	_, err = d.AddNode("Bad Cust", models.RoleCustomer, cust.ID, false)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))

	// второй админ под супер-админом — допустимо
	_, err = d.AddNode("Branch Office", models.RoleAdmin, admin.ID, false)
	assert.NoError(t, err)

	// клиент под дистрибьютором — допустимо
	_, err = d.AddNode("Another Shop", models.RoleCustomer, dist.ID, false)
	assert.NoError(t, err)

	// обычный узел без родителя — нет
	_, err = d.AddNode("Orphan", models.RoleDistributor, "", false)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))

	// неизвестный родитель
	_, err = d.AddNode("Ghost", models.RoleCustomer, "no-such-node", false)
	assert.Equal(t, models.ErrNotFound, models.KindOf(err))
}

func TestAddNodeUnderDeactivatedParent(t *testing.T) {
	d, _, dist, _, _ := buildTree(t)

	require.NoError(t, d.Deactivate(dist.ID))
	_, err := d.AddNode("Late Shop", models.RoleCustomer, dist.ID, false)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))
}

func TestServiceChain(t *testing.T) {
	d, admin, dist, cust, directCust := buildTree(t)

	distID, adminID, err := d.ServiceChain(cust.ID)
	require.NoError(t, err)
	assert.Equal(t, dist.ID, distID)
	assert.Equal(t, admin.ID, adminID)

	// клиент под админом обслуживается админом в обеих ролях
	distID, adminID, err = d.ServiceChain(directCust.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, distID)
	assert.Equal(t, admin.ID, adminID)

	_, _, err = d.ServiceChain(dist.ID)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))
}

func TestResolveScope(t *testing.T) {
	d, admin, dist, cust, directCust := buildTree(t)

	superScope, err := d.ResolveScope(models.Principal{NodeID: admin.ID, Role: models.RoleAdmin, IsSuperAdmin: true})
	require.NoError(t, err)
	assert.True(t, superScope.EntireTree)
	assert.True(t, superScope.Contains(cust.ID))

	distScope, err := d.ResolveScope(models.Principal{NodeID: dist.ID, Role: models.RoleDistributor})
	require.NoError(t, err)
	assert.True(t, distScope.Contains(dist.ID))
	assert.True(t, distScope.Contains(cust.ID))
	assert.False(t, distScope.Contains(directCust.ID))
	assert.False(t, distScope.Contains(admin.ID))

	custScope, err := d.ResolveScope(models.Principal{NodeID: cust.ID, Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.True(t, custScope.Contains(cust.ID))
	assert.False(t, custScope.Contains(dist.ID))
}

func TestNarrowScopeNeverWidens(t *testing.T) {
	d, admin, dist, cust, directCust := buildTree(t)

	adminScope, err := d.ResolveScope(models.Principal{NodeID: admin.ID, Role: models.RoleAdmin, IsSuperAdmin: true})
	require.NoError(t, err)

	narrowed, err := d.NarrowScope(adminScope, dist.ID)
	require.NoError(t, err)
	assert.True(t, narrowed.Contains(cust.ID))
	assert.False(t, narrowed.Contains(directCust.ID))

	// дистрибьютор не может сузиться до чужой ветки
	distScope, err := d.ResolveScope(models.Principal{NodeID: dist.ID, Role: models.RoleDistributor})
	require.NoError(t, err)
	_, err = d.NarrowScope(distScope, directCust.ID)
	assert.Equal(t, models.ErrScopeViolation, models.KindOf(err))
}

func TestReassignParent(t *testing.T) {
	d, admin, dist, cust, _ := buildTree(t)

	dist2, err := d.AddNode("Nagpur Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)

	require.NoError(t, d.ReassignParent(cust.ID, dist2.ID))
	node, err := d.Node(cust.ID)
	require.NoError(t, err)
	assert.Equal(t, dist2.ID, node.ParentID)

	// нарушение порядка ролей
	err = d.ReassignParent(dist.ID, cust.ID)
	assert.Equal(t, models.ErrValidation, models.KindOf(err))
}

func TestUserStats(t *testing.T) {
	d, admin, dist, _, _ := buildTree(t)

	scope, err := d.ResolveScope(models.Principal{NodeID: admin.ID, Role: models.RoleAdmin, IsSuperAdmin: true})
	require.NoError(t, err)

	stats := d.UserStats(scope)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Admin)
	assert.Equal(t, 1, stats.Distributor)
	assert.Equal(t, 2, stats.Customer)

	// деактивированные узлы не считаются
	require.NoError(t, d.Deactivate(dist.ID))
	stats = d.UserStats(scope)
	assert.Equal(t, 3, stats.Total)
}
