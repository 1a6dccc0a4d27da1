package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mensahub/internal/eligibility"
	"mensahub/internal/lookup"
	"mensahub/internal/menu"
	"mensahub/internal/user"
)

// memMenuStore serves a fixed snapshot.
type memMenuStore struct {
	week *menu.WeekMenu
}

func (s *memMenuStore) Load() (*menu.WeekMenu, error) { return s.week, nil }
func (s *memMenuStore) Save(week menu.WeekMenu) error { s.week = &week; return nil }

// memUserStore keeps profiles in memory.
type memUserStore struct {
	profiles user.Profiles
}

func (s *memUserStore) Load() (user.Profiles, error)      { return s.profiles, nil }
func (s *memUserStore) Save(profiles user.Profiles) error { s.profiles = profiles; return nil }

func serviceTables() *lookup.Tables {
	tables := lookup.Empty()
	tables.AllergensAndAdditives["21a"] = "Wheat"
	tables.AllergensAndAdditives["30"] = "Antioxidants"
	return tables
}

func newProfileServiceForTest(adminID string) (ProfileService, *memUserStore) {
	users := &memUserStore{profiles: user.Profiles{}}
	return NewProfileService(users, serviceTables(), adminID), users
}

func TestRegister(t *testing.T) {
	svc, users := newProfileServiceForTest("")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{
		Name:            "Alex",
		PricingStatus:   "student",
		DietPreferences: []string{"Vegan"},
		AllergyCodes:    []string{"21A"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, "Alex", profile.Name)
	// Keys are normalized to lower case on the way in.
	assert.Equal(t, []string{"vegan"}, profile.DietPreferences)
	assert.Equal(t, []string{"21a"}, profile.AllergyCodes)
	assert.False(t, profile.IsAdmin)
	assert.Contains(t, users.profiles, profile.ID)
}

func TestRegisterWithExplicitID(t *testing.T) {
	svc, _ := newProfileServiceForTest("admin-1")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{
		ID:            "admin-1",
		Name:          "Root",
		PricingStatus: "employee",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin-1", profile.ID)
	assert.True(t, profile.IsAdmin)

	_, err = svc.Register(ctx, RegisterRequest{ID: "admin-1", Name: "Again", PricingStatus: "guest"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newProfileServiceForTest("")
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"bad status", RegisterRequest{Name: "A", PricingStatus: "professor"}},
		{"bad pref", RegisterRequest{Name: "A", PricingStatus: "student", DietPreferences: []string{"paleo"}}},
		{"unknown allergen", RegisterRequest{Name: "A", PricingStatus: "student", AllergyCodes: []string{"99"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, ErrBadSurvey)
		})
	}
}

func TestRedoSurvey(t *testing.T) {
	svc, _ := newProfileServiceForTest("")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{Name: "Alex", PricingStatus: "student"})
	require.NoError(t, err)

	updated, err := svc.RedoSurvey(ctx, profile.ID, SurveyRequest{
		PricingStatus:   "employee",
		DietPreferences: []string{"low_co2"},
		AllergyCodes:    []string{"30"},
	})
	require.NoError(t, err)
	assert.Equal(t, "employee", updated.PricingStatus)
	assert.Equal(t, []string{"low_co2"}, updated.DietPreferences)
	assert.Equal(t, []string{"30"}, updated.AllergyCodes)

	_, err = svc.RedoSurvey(ctx, "nobody", SurveyRequest{PricingStatus: "student"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleMute(t *testing.T) {
	svc, _ := newProfileServiceForTest("")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{Name: "Alex", PricingStatus: "student"})
	require.NoError(t, err)

	muted, err := svc.ToggleMute(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = svc.ToggleMute(ctx, profile.ID)
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestNotificationLifecycle(t *testing.T) {
	svc, users := newProfileServiceForTest("")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{Name: "Alex", PricingStatus: "student"})
	require.NoError(t, err)

	first, err := svc.AddNotification(ctx, profile.ID, "  Currywurst ")
	require.NoError(t, err)
	assert.Equal(t, "1", first)
	assert.Equal(t, "Currywurst", users.profiles[profile.ID].Notifications["1"].Keyword)

	second, err := svc.AddNotification(ctx, profile.ID, "Suppe")
	require.NoError(t, err)
	assert.Equal(t, "2", second)

	views, err := svc.ListNotifications(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "1", views[0].ID)
	assert.Equal(t, "pending", views[0].State)

	require.NoError(t, svc.DeleteNotification(ctx, profile.ID, "1"))
	assert.ErrorIs(t, svc.DeleteNotification(ctx, profile.ID, "1"), ErrNotifMissing)

	_, err = svc.AddNotification(ctx, profile.ID, "   ")
	assert.ErrorIs(t, err, ErrBadSurvey)
}

func TestDeleteUser(t *testing.T) {
	svc, users := newProfileServiceForTest("")
	ctx := context.Background()

	profile, err := svc.Register(ctx, RegisterRequest{Name: "Alex", PricingStatus: "student"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, profile.ID))
	assert.NotContains(t, users.profiles, profile.ID)
	assert.ErrorIs(t, svc.DeleteUser(ctx, profile.ID), ErrUserNotFound)
}

func serviceWeek() *menu.WeekMenu {
	return &menu.WeekMenu{
		Mensa: "Testmensa",
		WeekData: []menu.DayMenu{
			{
				Day:  "Monday",
				Date: "2026-03-02",
				Categories: []menu.Category{
					{Name: "Essen", Meals: []menu.Meal{
						{
							Name:         "Gemuesecurry",
							Price:        &menu.Price{Student: "2.95", Employee: "4.20", Guest: "5.50"},
							DietaryIcons: []menu.DietaryIcon{{Type: "vegan"}},
						},
						{
							Name:      "Nudeln",
							Allergens: []menu.Allergen{{Code: "21a", Name: "Wheat"}},
						},
					}},
				},
			},
			{
				Day:  "Wednesday",
				Date: "2026-03-04",
				Categories: []menu.Category{
					{Name: "Essen", Meals: []menu.Meal{{Name: "Eintopf"}}},
				},
			},
		},
	}
}

func newMenuServiceForTest(today string) (*menuService, *memUserStore) {
	users := &memUserStore{profiles: user.Profiles{
		"u1": {
			ID:              "u1",
			Name:            "Alex",
			PricingStatus:   "student",
			DietPreferences: []string{user.PrefVegan},
			AllergyCodes:    []string{"21a"},
		},
	}}
	svc := &menuService{
		menus:     &memMenuStore{week: serviceWeek()},
		users:     users,
		evaluator: eligibility.New(serviceTables()),
		now: func() time.Time {
			d, _ := time.Parse(menu.DateLayout, today)
			return d
		},
	}
	return svc, users
}

func TestDayForUser(t *testing.T) {
	svc, _ := newMenuServiceForTest("2026-03-02")
	ctx := context.Background()

	view, err := svc.DayForUser(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", view.Date)
	require.Len(t, view.Categories, 1)
	require.Len(t, view.Categories[0].Meals, 2)

	curry := view.Categories[0].Meals[0]
	assert.Equal(t, "2.95", curry.Price)
	assert.True(t, curry.Safe)
	assert.True(t, curry.MatchesPref)

	nudeln := view.Categories[0].Meals[1]
	assert.False(t, nudeln.Safe)
	assert.Equal(t, []string{"21A: Wheat"}, nudeln.AllergyViolations)
}

func TestDayForUserErrors(t *testing.T) {
	svc, _ := newMenuServiceForTest("2026-03-02")
	ctx := context.Background()

	_, err := svc.DayForUser(ctx, "u1", "02.03.2026")
	assert.ErrorIs(t, err, ErrBadSurvey)

	_, err = svc.DayForUser(ctx, "u1", "2026-03-03")
	assert.ErrorIs(t, err, ErrNoMenu)

	_, err = svc.DayForUser(ctx, "nobody", "2026-03-02")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDayForWeekdayRollsForward(t *testing.T) {
	// Today is Tuesday 2026-03-03; Monday already passed, so "monday"
	// resolves to 2026-03-09 which has no menu stored.
	svc, _ := newMenuServiceForTest("2026-03-03")
	ctx := context.Background()

	_, err := svc.DayForWeekday(ctx, "u1", "monday")
	assert.ErrorIs(t, err, ErrNoMenu)

	view, err := svc.DayForWeekday(ctx, "u1", "Wednesday")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", view.Date)

	_, err = svc.DayForWeekday(ctx, "u1", "someday")
	assert.ErrorIs(t, err, ErrBadSurvey)
}

func TestMenuServiceStats(t *testing.T) {
	svc, _ := newMenuServiceForTest("2026-03-02")

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMeals)
	assert.Equal(t, 1, stats.Vegan)
	assert.Equal(t, "2026-03-02", stats.FirstDate)
	assert.Equal(t, "2026-03-04", stats.LastDate)
}
