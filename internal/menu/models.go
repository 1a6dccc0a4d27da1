package menu

import (
	"strings"
	"time"
)

// DateLayout is the wire format for every date stored in the snapshot.
const DateLayout = "2006-01-02"

// PlaceholderName marks a meal whose name could not be recovered. Meals
// carrying it are dropped before a DayMenu leaves the extraction engine.
const PlaceholderName = "N/A"

// Price holds the three-tier pricing for a meal. Values are decimal strings
// ("3.95") because the upstream source publishes them as text.
type Price struct {
	Student  string `json:"student"`
	Employee string `json:"employee"`
	Guest    string `json:"guest"`
}

// ForStatus returns the price for the given pricing status, defaulting to
// the guest tier for anything unrecognized.
func (p *Price) ForStatus(status string) string {
	if p == nil {
		return ""
	}
	switch status {
	case "student":
		return p.Student
	case "employee":
		return p.Employee
	default:
		return p.Guest
	}
}

// Allergen is one allergen/additive code with its resolved description.
type Allergen struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DietaryIcon is a classified pictogram attached to a meal.
type DietaryIcon struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type Meal struct {
	Name           string        `json:"name"`
	Price          *Price        `json:"price"`
	Allergens      []Allergen    `json:"allergens"`
	DietaryIcons   []DietaryIcon `json:"dietary_icons"`
	Sustainability []string      `json:"sustainability"`
}

// HasIcon reports whether the meal carries the given dietary icon type.
func (m *Meal) HasIcon(iconType string) bool {
	for _, icon := range m.DietaryIcons {
		if strings.EqualFold(icon.Type, iconType) {
			return true
		}
	}
	return false
}

// SustainabilityText joins the raw sustainability strings for substring
// matching, lower-cased.
func (m *Meal) SustainabilityText() string {
	return strings.ToLower(strings.Join(m.Sustainability, " "))
}

type Category struct {
	Name  string `json:"name"`
	Meals []Meal `json:"meals"`
}

type DayMenu struct {
	Day        string     `json:"day"`
	Date       string     `json:"date"`
	Categories []Category `json:"categories"`
}

// IsEmpty reports whether the day has no presentable meals.
func (d *DayMenu) IsEmpty() bool {
	for _, cat := range d.Categories {
		if len(cat.Meals) > 0 {
			return false
		}
	}
	return true
}

// WeekMenu is the full snapshot for one mensa. It is replaced wholesale on
// every successful scrape; days are ordered by ascending date.
type WeekMenu struct {
	Mensa    string    `json:"mensa"`
	WeekData []DayMenu `json:"week_data"`
}

// DayFor returns the DayMenu for the given date string, or nil.
func (w *WeekMenu) DayFor(date string) *DayMenu {
	for i := range w.WeekData {
		if w.WeekData[i].Date == date {
			return &w.WeekData[i]
		}
	}
	return nil
}

// LatestDate returns the maximum date present in the snapshot, or "" when
// the snapshot holds no days.
func (w *WeekMenu) LatestDate() string {
	latest := ""
	for _, day := range w.WeekData {
		if day.Date > latest {
			latest = day.Date
		}
	}
	return latest
}

// FirstOccurrence finds the earliest date >= from on which any meal name
// contains keyword as a case-insensitive substring. Returns "" when the
// keyword does not occur.
func (w *WeekMenu) FirstOccurrence(keyword string, from time.Time) string {
	needle := strings.ToLower(keyword)
	fromDate := from.Format(DateLayout)
	for _, day := range w.WeekData {
		if day.Date < fromDate {
			continue
		}
		for _, cat := range day.Categories {
			for _, meal := range cat.Meals {
				if strings.Contains(strings.ToLower(meal.Name), needle) {
					return day.Date
				}
			}
		}
	}
	return ""
}

// MealNamesOn returns the lower-cased meal names served on the given date.
func (w *WeekMenu) MealNamesOn(date string) []string {
	day := w.DayFor(date)
	if day == nil {
		return nil
	}
	var names []string
	for _, cat := range day.Categories {
		for _, meal := range cat.Meals {
			names = append(names, strings.ToLower(meal.Name))
		}
	}
	return names
}
