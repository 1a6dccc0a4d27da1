package menu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testWeek() WeekMenu {
	return WeekMenu{
		Mensa: "Testmensa",
		WeekData: []DayMenu{
			{
				Day:  "Monday",
				Date: "2026-03-02",
				Categories: []Category{
					{Name: "Essen", Meals: []Meal{
						{Name: "Linsensuppe"},
						{Name: "Currywurst mit Pommes"},
					}},
				},
			},
			{
				Day:  "Wednesday",
				Date: "2026-03-04",
				Categories: []Category{
					{Name: "Essen", Meals: []Meal{
						{Name: "Currywurst klassisch"},
					}},
				},
			},
		},
	}
}

func TestFirstOccurrence(t *testing.T) {
	week := testWeek()

	tests := []struct {
		name    string
		keyword string
		from    string
		want    string
	}{
		{"match on first day", "currywurst", "2026-03-02", "2026-03-02"},
		{"case insensitive", "CURRYWURST", "2026-03-02", "2026-03-02"},
		{"from skips earlier day", "currywurst", "2026-03-03", "2026-03-04"},
		{"no occurrence", "pizza", "2026-03-02", ""},
		{"from after all days", "currywurst", "2026-03-05", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, err := time.Parse(DateLayout, tt.from)
			if err != nil {
				t.Fatalf("bad test date: %v", err)
			}
			got := week.FirstOccurrence(tt.keyword, from)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatestDate(t *testing.T) {
	week := testWeek()
	assert.Equal(t, "2026-03-04", week.LatestDate())

	empty := WeekMenu{}
	assert.Equal(t, "", empty.LatestDate())
}

func TestDayFor(t *testing.T) {
	week := testWeek()

	day := week.DayFor("2026-03-04")
	if day == nil {
		t.Fatal("expected day for 2026-03-04")
	}
	assert.Equal(t, "Wednesday", day.Day)

	assert.Nil(t, week.DayFor("2026-03-03"))
}

func TestMealNamesOn(t *testing.T) {
	week := testWeek()

	names := week.MealNamesOn("2026-03-02")
	assert.Equal(t, []string{"linsensuppe", "currywurst mit pommes"}, names)

	assert.Nil(t, week.MealNamesOn("2026-03-06"))
}

func TestPriceForStatus(t *testing.T) {
	price := &Price{Student: "2.95", Employee: "4.20", Guest: "5.50"}

	assert.Equal(t, "2.95", price.ForStatus("student"))
	assert.Equal(t, "4.20", price.ForStatus("employee"))
	assert.Equal(t, "5.50", price.ForStatus("guest"))
	assert.Equal(t, "5.50", price.ForStatus("something else"))

	var missing *Price
	assert.Equal(t, "", missing.ForStatus("student"))
}

func TestDayMenuIsEmpty(t *testing.T) {
	empty := DayMenu{Categories: []Category{{Name: "Essen"}}}
	assert.True(t, empty.IsEmpty())

	full := DayMenu{Categories: []Category{{Name: "Essen", Meals: []Meal{{Name: "Suppe"}}}}}
	assert.False(t, full.IsEmpty())
}

func TestMealHelpers(t *testing.T) {
	meal := Meal{
		DietaryIcons:   []DietaryIcon{{Type: "vegan"}},
		Sustainability: []string{"CO2 Wert wesentlich unter dem Durchschnitt"},
	}

	assert.True(t, meal.HasIcon("vegan"))
	assert.True(t, meal.HasIcon("VEGAN"))
	assert.False(t, meal.HasIcon("vegetarian"))

	assert.Contains(t, meal.SustainabilityText(), "wesentlich")
}
