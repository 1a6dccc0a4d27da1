package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mensahub/internal/eligibility"
	"mensahub/internal/lookup"
	"mensahub/internal/menu"
	"mensahub/internal/store"
	"mensahub/internal/user"
)

// Service errors surfaced to handlers for status mapping.
var (
	ErrUserExists   = errors.New("user already registered")
	ErrUserNotFound = errors.New("user not found")
	ErrNotifMissing = errors.New("notification not found")
	ErrBadSurvey    = errors.New("invalid survey input")
	ErrNoMenu       = errors.New("no menu for date")
)

// RegisterRequest carries the registration survey. ID is optional; when
// empty a fresh id is generated.
type RegisterRequest struct {
	ID              string   `json:"id"`
	Name            string   `json:"name" binding:"required"`
	Password        string   `json:"password" binding:"required"`
	PricingStatus   string   `json:"status" binding:"required"`
	DietPreferences []string `json:"diet_preferences"`
	AllergyCodes    []string `json:"allergy_codes"`
}

// SurveyRequest carries a survey redo for an existing profile.
type SurveyRequest struct {
	PricingStatus   string   `json:"status" binding:"required"`
	DietPreferences []string `json:"diet_preferences"`
	AllergyCodes    []string `json:"allergy_codes"`
}

// NotificationView is the list representation of one keyword watch.
type NotificationView struct {
	ID            string  `json:"id"`
	Keyword       string  `json:"keyword"`
	State         string  `json:"state"`
	TriggeredDate *string `json:"triggered_date,omitempty"`
	Active        bool    `json:"active"`
}

// ProfileService manages subscriber profiles and their keyword watches.
type ProfileService interface {
	Register(ctx context.Context, req RegisterRequest) (*user.Profile, error)
	Get(ctx context.Context, id string) (*user.Profile, error)
	RedoSurvey(ctx context.Context, id string, req SurveyRequest) (*user.Profile, error)
	ToggleMute(ctx context.Context, id string) (bool, error)
	AddNotification(ctx context.Context, id, keyword string) (string, error)
	ListNotifications(ctx context.Context, id string) ([]NotificationView, error)
	DeleteNotification(ctx context.Context, id, notifID string) error
	ListUsers(ctx context.Context) (user.Profiles, error)
	DeleteUser(ctx context.Context, id string) error
}

type profileService struct {
	users   store.UserStore
	tables  *lookup.Tables
	adminID string
}

// NewProfileService wires a ProfileService. Profiles whose id equals
// adminID are flagged admin at registration.
func NewProfileService(users store.UserStore, tables *lookup.Tables, adminID string) ProfileService {
	return &profileService{users: users, tables: tables, adminID: adminID}
}

func (s *profileService) Register(ctx context.Context, req RegisterRequest) (*user.Profile, error) {
	if err := s.validateSurvey(req.PricingStatus, req.DietPreferences, req.AllergyCodes); err != nil {
		return nil, err
	}

	profiles, err := s.users.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user data: %w", err)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, exists := profiles[id]; exists {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserExists)
	}

	profile := &user.Profile{
		ID:              id,
		Name:            req.Name,
		PricingStatus:   req.PricingStatus,
		DietPreferences: normalizeKeys(req.DietPreferences),
		AllergyCodes:    normalizeKeys(req.AllergyCodes),
		IsAdmin:         s.adminID != "" && id == s.adminID,
		Notifications:   map[string]*user.Notification{},
	}
	profiles[id] = profile

	if err := s.users.Save(profiles); err != nil {
		return nil, fmt.Errorf("saving user data: %w", err)
	}
	return profile, nil
}

func (s *profileService) Get(ctx context.Context, id string) (*user.Profile, error) {
	profiles, err := s.users.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return profile, nil
}

func (s *profileService) RedoSurvey(ctx context.Context, id string, req SurveyRequest) (*user.Profile, error) {
	if err := s.validateSurvey(req.PricingStatus, req.DietPreferences, req.AllergyCodes); err != nil {
		return nil, err
	}

	profiles, err := s.users.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}

	profile.PricingStatus = req.PricingStatus
	profile.DietPreferences = normalizeKeys(req.DietPreferences)
	profile.AllergyCodes = normalizeKeys(req.AllergyCodes)

	if err := s.users.Save(profiles); err != nil {
		return nil, fmt.Errorf("saving user data: %w", err)
	}
	return profile, nil
}

func (s *profileService) ToggleMute(ctx context.Context, id string) (bool, error) {
	profiles, err := s.users.Load()
	if err != nil {
		return false, fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[id]
	if !ok {
		return false, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}

	profile.IsMuted = !profile.IsMuted
	if err := s.users.Save(profiles); err != nil {
		return false, fmt.Errorf("saving user data: %w", err)
	}
	return profile.IsMuted, nil
}

func (s *profileService) AddNotification(ctx context.Context, id, keyword string) (string, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return "", fmt.Errorf("empty keyword: %w", ErrBadSurvey)
	}

	profiles, err := s.users.Load()
	if err != nil {
		return "", fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[id]
	if !ok {
		return "", fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}

	notifID := profile.AddNotification(keyword)
	if err := s.users.Save(profiles); err != nil {
		return "", fmt.Errorf("saving user data: %w", err)
	}
	return notifID, nil
}

func (s *profileService) ListNotifications(ctx context.Context, id string) ([]NotificationView, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]NotificationView, 0, len(profile.Notifications))
	for notifID, notif := range profile.Notifications {
		views = append(views, NotificationView{
			ID:            notifID,
			Keyword:       notif.Keyword,
			State:         notif.State().String(),
			TriggeredDate: notif.TriggeredDate,
			Active:        notif.ActiveForFuture,
		})
	}
	sortViews(views)
	return views, nil
}

func (s *profileService) DeleteNotification(ctx context.Context, id, notifID string) error {
	profiles, err := s.users.Load()
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	if _, ok := profile.Notifications[notifID]; !ok {
		return fmt.Errorf("notification %s: %w", notifID, ErrNotifMissing)
	}

	delete(profile.Notifications, notifID)
	if err := s.users.Save(profiles); err != nil {
		return fmt.Errorf("saving user data: %w", err)
	}
	return nil
}

func (s *profileService) ListUsers(ctx context.Context) (user.Profiles, error) {
	profiles, err := s.users.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user data: %w", err)
	}
	return profiles, nil
}

func (s *profileService) DeleteUser(ctx context.Context, id string) error {
	profiles, err := s.users.Load()
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}
	if _, ok := profiles[id]; !ok {
		return fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}

	delete(profiles, id)
	if err := s.users.Save(profiles); err != nil {
		return fmt.Errorf("saving user data: %w", err)
	}
	return nil
}

func (s *profileService) validateSurvey(status string, prefs, allergies []string) error {
	if !user.ValidStatus(status) {
		return fmt.Errorf("unknown pricing status %q: %w", status, ErrBadSurvey)
	}
	for _, pref := range prefs {
		if !user.ValidPref(strings.ToLower(pref)) {
			return fmt.Errorf("unknown preference %q: %w", pref, ErrBadSurvey)
		}
	}
	for _, code := range allergies {
		if !s.tables.KnownAllergen(code) {
			return fmt.Errorf("unknown allergen code %q: %w", code, ErrBadSurvey)
		}
	}
	return nil
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}

func sortViews(views []NotificationView) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i].ID, views[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

// MealView is one meal rendered for a specific user: price for their tier
// plus the eligibility verdict.
type MealView struct {
	Name              string   `json:"name"`
	Price             string   `json:"price"`
	Safe              bool     `json:"safe"`
	MatchesPref       bool     `json:"matches_pref"`
	AllergyViolations []string `json:"allergy_violations,omitempty"`
	PrefMatches       []string `json:"pref_matches,omitempty"`
	PrefViolations    []string `json:"pref_violations,omitempty"`
	Sustainability    []string `json:"sustainability,omitempty"`
}

// CategoryView groups rendered meals under their menu section.
type CategoryView struct {
	Name  string     `json:"name"`
	Meals []MealView `json:"meals"`
}

// DayView is one day of the menu rendered for a specific user.
type DayView struct {
	Day        string         `json:"day"`
	Date       string         `json:"date"`
	Categories []CategoryView `json:"categories"`
}

// MenuService renders the current snapshot for subscribers and summarizes
// it for admins.
type MenuService interface {
	Week(ctx context.Context) (*menu.WeekMenu, error)
	DayForUser(ctx context.Context, userID, date string) (*DayView, error)
	DayForWeekday(ctx context.Context, userID, weekday string) (*DayView, error)
	Stats(ctx context.Context) (menu.Stats, error)
}

type menuService struct {
	menus     store.MenuStore
	users     store.UserStore
	evaluator *eligibility.Evaluator
	now       func() time.Time
}

// NewMenuService wires a MenuService.
func NewMenuService(menus store.MenuStore, users store.UserStore, evaluator *eligibility.Evaluator) MenuService {
	return &menuService{menus: menus, users: users, evaluator: evaluator, now: time.Now}
}

func (s *menuService) Week(ctx context.Context) (*menu.WeekMenu, error) {
	week, err := s.menus.Load()
	if err != nil {
		return nil, fmt.Errorf("loading menu snapshot: %w", err)
	}
	return week, nil
}

// DayForUser renders the menu for the given date. An empty date means
// today.
func (s *menuService) DayForUser(ctx context.Context, userID, date string) (*DayView, error) {
	if date == "" {
		date = s.now().Format(menu.DateLayout)
	} else if _, err := time.Parse(menu.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, ErrBadSurvey)
	}
	return s.render(ctx, userID, date)
}

// DayForWeekday renders the menu for the next occurrence of the named
// weekday. A weekday that already passed this week rolls to next week.
func (s *menuService) DayForWeekday(ctx context.Context, userID, weekday string) (*DayView, error) {
	target, err := parseWeekday(weekday)
	if err != nil {
		return nil, err
	}

	day := s.now()
	for day.Weekday() != target {
		day = day.AddDate(0, 0, 1)
	}
	return s.render(ctx, userID, day.Format(menu.DateLayout))
}

func (s *menuService) Stats(ctx context.Context) (menu.Stats, error) {
	week, err := s.menus.Load()
	if err != nil {
		return menu.Stats{}, fmt.Errorf("loading menu snapshot: %w", err)
	}
	return menu.Summarize(week), nil
}

func (s *menuService) render(ctx context.Context, userID, date string) (*DayView, error) {
	week, err := s.menus.Load()
	if err != nil {
		return nil, fmt.Errorf("loading menu snapshot: %w", err)
	}
	if week == nil {
		return nil, fmt.Errorf("menu %s: %w", date, ErrNoMenu)
	}
	day := week.DayFor(date)
	if day == nil {
		return nil, fmt.Errorf("menu %s: %w", date, ErrNoMenu)
	}

	profiles, err := s.users.Load()
	if err != nil {
		return nil, fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrUserNotFound)
	}

	view := &DayView{Day: day.Day, Date: day.Date}
	for _, cat := range day.Categories {
		catView := CategoryView{Name: cat.Name}
		for i := range cat.Meals {
			meal := &cat.Meals[i]
			verdict := s.evaluator.Evaluate(meal, profile)
			catView.Meals = append(catView.Meals, MealView{
				Name:              meal.Name,
				Price:             meal.Price.ForStatus(profile.PricingStatus),
				Safe:              verdict.Safe,
				MatchesPref:       verdict.MatchesPref,
				AllergyViolations: verdict.AllergyViolations,
				PrefMatches:       verdict.PrefMatches,
				PrefViolations:    verdict.PrefViolations,
				Sustainability:    meal.Sustainability,
			})
		}
		view.Categories = append(view.Categories, catView)
	}
	return view, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	switch strings.ToLower(name) {
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	case "sunday":
		return time.Sunday, nil
	}
	return 0, fmt.Errorf("unknown weekday %q: %w", name, ErrBadSurvey)
}
