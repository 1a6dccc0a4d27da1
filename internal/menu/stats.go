package menu

import "strings"

// Stats summarizes one snapshot for the admin overview.
type Stats struct {
	TotalMeals int    `json:"total_meals"`
	Days       int    `json:"days"`
	FirstDate  string `json:"first_date"`
	LastDate   string `json:"last_date"`

	Vegan      int `json:"vegan"`
	Vegetarian int `json:"vegetarian"`
	Klimaessen int `json:"klimaessen"`
	LowCO2     int `json:"low_co2"`
	LowH2O     int `json:"low_h2o"`
}

// Summarize tallies dietary and sustainability coverage across the week.
// The low-CO2/low-H2O tallies use the same metric-text phrases as
// preference matching.
func Summarize(week *WeekMenu) Stats {
	stats := Stats{}
	if week == nil {
		return stats
	}
	stats.Days = len(week.WeekData)

	for _, day := range week.WeekData {
		if stats.FirstDate == "" || day.Date < stats.FirstDate {
			stats.FirstDate = day.Date
		}
		if day.Date > stats.LastDate {
			stats.LastDate = day.Date
		}
		for _, cat := range day.Categories {
			for i := range cat.Meals {
				meal := &cat.Meals[i]
				stats.TotalMeals++
				if meal.HasIcon("vegan") {
					stats.Vegan++
				}
				if meal.HasIcon("vegetarian") {
					stats.Vegetarian++
				}
				if meal.HasIcon("klimaessen") {
					stats.Klimaessen++
				}
				text := meal.SustainabilityText()
				if strings.Contains(text, "co2") &&
					(strings.Contains(text, "wesentlich") || strings.Contains(text, "leicht")) {
					stats.LowCO2++
				}
				if strings.Contains(text, "wasserverbrauch") &&
					strings.Contains(text, "unter dem durchschnitt") {
					stats.LowH2O++
				}
			}
		}
	}
	return stats
}
