package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunjankadam/Vendofy-sub001/config"
	"github.com/Gunjankadam/Vendofy-sub001/hierarchy"
	"github.com/Gunjankadam/Vendofy-sub001/ledger"
	"github.com/Gunjankadam/Vendofy-sub001/models"
	"github.com/Gunjankadam/Vendofy-sub001/poller"
	"github.com/Gunjankadam/Vendofy-sub001/rollup"
)

type handlerWorld struct {
	hub  *poller.Hub
	cust models.Principal
	dist models.Principal
}

func setupHandlers(t *testing.T) *handlerWorld {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d := hierarchy.NewDirectory()
	admin, err := d.AddNode("Head Office", models.RoleAdmin, "", true)
	require.NoError(t, err)
	distNode, err := d.AddNode("Pune Distributor", models.RoleDistributor, admin.ID, false)
	require.NoError(t, err)
	custNode, err := d.AddNode("Corner Shop", models.RoleCustomer, distNode.ID, false)
	require.NoError(t, err)

	l := ledger.NewLedger(d, "INR")
	e := rollup.NewEngine(l, d)
	h := poller.NewHub(l, e, time.Hour)
	t.Cleanup(h.Shutdown)

	Init(&config.Config{Currency: "INR", PollInterval: time.Hour}, d, l, e, h)

	return &handlerWorld{
		hub:  h,
		cust: models.Principal{UserID: "u-cust", NodeID: custNode.ID, Role: models.RoleCustomer},
		dist: models.Principal{UserID: "u-dist", NodeID: distNode.ID, Role: models.RoleDistributor},
	}
}

func request(p models.Principal, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if body != "" {
		c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
	} else {
		c.Request = httptest.NewRequest(method, target, nil)
	}
	c.Set("principal", p)
	return c, rec
}

func TestSubscribeAndDrainEvents(t *testing.T) {
	w := setupHandlers(t)

	c, rec := request(w.cust, "POST", "/api/sync/subscribe", "")
	SubscribeHandler(c)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)

	c, rec = request(w.cust, "GET", "/api/sync/events", "")
	SyncEventsHandler(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Доступ по явному session_id тоже работает
	c, rec = request(w.cust, "GET", "/api/sync/events?session_id="+resp.SessionID, "")
	SyncEventsHandler(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncEventsForeignSessionForbidden(t *testing.T) {
	w := setupHandlers(t)

	distSession := w.hub.Subscribe(w.dist)

	// Чужая сессия по id недоступна
	c, rec := request(w.cust, "GET", "/api/sync/events?session_id="+distSession.ID, "")
	SyncEventsHandler(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSyncEventsWithoutSession(t *testing.T) {
	w := setupHandlers(t)

	c, rec := request(w.cust, "GET", "/api/sync/events", "")
	SyncEventsHandler(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnsubscribeStopsSession(t *testing.T) {
	w := setupHandlers(t)
	w.hub.Subscribe(w.cust)

	c, rec := request(w.cust, "POST", "/api/sync/unsubscribe", "")
	UnsubscribeHandler(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, ok := w.hub.SessionOf(w.cust.UserID)
	assert.False(t, ok)
}

func TestProfileValidation(t *testing.T) {
	w := setupHandlers(t)

	c, rec := request(w.cust, "PUT", "/api/profile", `{"name":"","email":"not-an-email"}`)
	UpdateProfileHandler(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = request(w.cust, "PUT", "/api/profile/password", `{"old_password":"x","new_password":"123"}`)
	ChangePasswordHandler(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
