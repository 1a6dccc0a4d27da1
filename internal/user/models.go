// Package user defines subscriber profiles and their keyword notifications.
package user

import (
	"sort"
	"strconv"
)

// Pricing statuses accepted by the registration survey.
const (
	StatusStudent  = "student"
	StatusEmployee = "employee"
	StatusGuest    = "guest"
)

// ValidStatus reports whether s is one of the three pricing tiers.
func ValidStatus(s string) bool {
	return s == StatusStudent || s == StatusEmployee || s == StatusGuest
}

// Dietary/sustainability preference keys.
const (
	PrefVegan      = "vegan"
	PrefVegetarian = "vegetarian"
	PrefLowCO2     = "low_co2"
	PrefLowH2O     = "low_h2o"
)

// KnownPrefs lists every preference key the survey accepts.
var KnownPrefs = []string{PrefVegan, PrefVegetarian, PrefLowCO2, PrefLowH2O}

// ValidPref reports whether p is a recognized preference key.
func ValidPref(p string) bool {
	for _, known := range KnownPrefs {
		if p == known {
			return true
		}
	}
	return false
}

// Profile is one registered subscriber.
type Profile struct {
	ID              string                   `json:"-"`
	Name            string                   `json:"name"`
	PricingStatus   string                   `json:"status"`
	DietPreferences []string                 `json:"diet_preferences"`
	AllergyCodes    []string                 `json:"allergy_codes"`
	IsAdmin         bool                     `json:"is_admin"`
	IsMuted         bool                     `json:"is_muted"`
	Notifications   map[string]*Notification `json:"notifications"`
}

// HasPref reports whether the profile requested the given preference.
func (p *Profile) HasPref(pref string) bool {
	for _, have := range p.DietPreferences {
		if have == pref {
			return true
		}
	}
	return false
}

// NextNotificationID allocates the next sequential notification id:
// max existing + 1. Ids are never reused, even after deletion, because the
// maximum only grows while a notification with the maximum id exists and
// deleting it still leaves earlier alerts referenced by chat history.
func (p *Profile) NextNotificationID() string {
	maxID := 0
	for id := range p.Notifications {
		if n, err := strconv.Atoi(id); err == nil && n > maxID {
			maxID = n
		}
	}
	return strconv.Itoa(maxID + 1)
}

// AddNotification stores a new pending keyword watch and returns its id.
func (p *Profile) AddNotification(keyword string) string {
	if p.Notifications == nil {
		p.Notifications = make(map[string]*Notification)
	}
	id := p.NextNotificationID()
	p.Notifications[id] = NewNotification(keyword)
	return id
}

// Profiles is the whole user document: user id -> profile.
type Profiles map[string]*Profile

// SortedIDs returns the user ids in a stable order.
func (ps Profiles) SortedIDs() []string {
	ids := make([]string, 0, len(ps))
	for id := range ps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
