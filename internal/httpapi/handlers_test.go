package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mensahub/internal/eligibility"
	"mensahub/internal/menu"
	"mensahub/internal/notify"
	"mensahub/internal/user"
)

// stubRefresher counts refetch calls.
type stubRefresher struct {
	calls int
	week  menu.WeekMenu
}

func (r *stubRefresher) ScrapeWeek(ctx context.Context) (menu.WeekMenu, error) {
	r.calls++
	return r.week, nil
}

// nullMessenger accepts every delivery.
type nullMessenger struct{}

func (nullMessenger) Send(ctx context.Context, recipientID, text string, choices []notify.Choice) error {
	return nil
}

type apiFixture struct {
	router    *gin.Engine
	auth      *Auth
	users     *memUserStore
	refresher *stubRefresher
}

func newAPIFixture(t *testing.T, adminID string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auth, err := NewAuth(testSecret, "letmein", time.Hour)
	require.NoError(t, err)

	tables := serviceTables()
	users := &memUserStore{profiles: user.Profiles{}}
	menus := &memMenuStore{week: serviceWeek()}

	engine := notify.NewEngine(menus, users, nullMessenger{}, zap.NewNop()).
		WithClock(func() time.Time {
			d, _ := time.Parse(menu.DateLayout, "2026-03-02")
			return d
		})
	profiles := NewProfileService(users, tables, adminID)
	menuSvc := NewMenuService(menus, users, eligibility.New(tables))
	refresher := &stubRefresher{week: *serviceWeek()}

	handler := NewHandler(auth, profiles, menuSvc, engine, refresher, tables, zap.NewNop())
	return &apiFixture{
		router:    handler.Router(),
		auth:      auth,
		users:     users,
		refresher: refresher,
	}
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) register(t *testing.T, id string) string {
	t.Helper()
	w := f.do(http.MethodPost, "/api/register", "", gin.H{
		"id":       id,
		"name":     "Alex",
		"password": "letmein",
		"status":   "student",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestRegisterEndpoint(t *testing.T) {
	f := newAPIFixture(t, "")

	token := f.register(t, "u1")
	assert.NotEmpty(t, token)
	assert.Contains(t, f.users.profiles, "u1")

	// Wrong password is rejected before any profile is created.
	w := f.do(http.MethodPost, "/api/register", "", gin.H{
		"name": "Eve", "password": "wrong", "status": "student",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Duplicate id conflicts.
	w = f.do(http.MethodPost, "/api/register", "", gin.H{
		"id": "u1", "name": "Alex", "password": "letmein", "status": "student",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t, "")

	w := f.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/profile", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileEndpoint(t *testing.T) {
	f := newAPIFixture(t, "")
	token := f.register(t, "u1")

	w := f.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp["id"])
	assert.Equal(t, "student", resp["status"])
}

func TestMenuTodayEndpoint(t *testing.T) {
	f := newAPIFixture(t, "")
	token := f.register(t, "u1")

	w := f.do(http.MethodGet, "/api/menu/today?date=2026-03-02", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var day DayView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &day))
	assert.Equal(t, "2026-03-02", day.Date)

	w = f.do(http.MethodGet, "/api/menu/today?date=2030-01-01", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationEndpoints(t *testing.T) {
	f := newAPIFixture(t, "")
	token := f.register(t, "u1")

	w := f.do(http.MethodPost, "/api/notifications", token, gin.H{"keyword": "eintopf"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The instant check fires on the stored snapshot right away.
	notif := f.users.profiles["u1"].Notifications["1"]
	require.NotNil(t, notif.TriggeredDate)

	w = f.do(http.MethodGet, "/api/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []NotificationView `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "eintopf", list.Notifications[0].Keyword)

	w = f.do(http.MethodDelete, "/api/notifications/1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodDelete, "/api/notifications/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChoiceEndpoint(t *testing.T) {
	f := newAPIFixture(t, "")
	token := f.register(t, "u1")

	w := f.do(http.MethodPost, "/api/notifications", token, gin.H{"keyword": "eintopf"})
	require.Equal(t, http.StatusCreated, w.Code)
	date := *f.users.profiles["u1"].Notifications["1"].TriggeredDate

	w = f.do(http.MethodPost, "/api/choices", token, gin.H{"data": "REMINDER:SET:1:" + date})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, f.users.profiles["u1"].Notifications["1"].ReminderSet)

	// Replaying an old prompt for a different date conflicts.
	w = f.do(http.MethodPost, "/api/choices", token, gin.H{"data": "REMINDER:SET:1:1999-01-01"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPost, "/api/choices", token, gin.H{"data": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllergenEndpoints(t *testing.T) {
	f := newAPIFixture(t, "")
	token := f.register(t, "u1")

	w := f.do(http.MethodGet, "/api/allergens", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Allergens []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"allergens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Allergens, 2)
	assert.Equal(t, "21a", list.Allergens[0].Code)

	w = f.do(http.MethodGet, "/api/allergens/99", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	f := newAPIFixture(t, "admin-1")
	adminToken := f.register(t, "admin-1")
	userToken := f.register(t, "u2")

	// Plain users are locked out.
	w := f.do(http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/api/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Equal(t, 2, users.Count)

	w = f.do(http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats menu.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalMeals)

	w = f.do(http.MethodPost, "/api/admin/refetch", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.refresher.calls)

	w = f.do(http.MethodDelete, "/api/admin/users/u2", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, f.users.profiles, "u2")
}
