package scrape

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mensahub/internal/lookup"
	"mensahub/internal/menu"
)

// Extractor recovers a structured DayMenu from one day's markup fragment.
// Every field is recovered independently: a missing name, price or tooltip
// never blocks the rest of the meal.
type Extractor struct {
	tables *lookup.Tables
}

// NewExtractor returns an Extractor resolving allergen codes and pictogram
// ids against the given tables.
func NewExtractor(tables *lookup.Tables) *Extractor {
	return &Extractor{tables: tables}
}

var priceToken = regexp.MustCompile(`[\d,]+`)

// ExtractDay parses the markup fragment for the given date. Category blocks
// are marked by div.splGroup, meal blocks by div.splMeal. Meals without a
// recoverable name and categories without meals are dropped.
func (e *Extractor) ExtractDay(markup string, date time.Time) (menu.DayMenu, error) {
	day := menu.DayMenu{
		Day:  date.Weekday().String(),
		Date: date.Format(menu.DateLayout),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return day, fmt.Errorf("parsing day fragment for %s: %w", day.Date, err)
	}

	currentIdx := -1
	doc.Find("div").Each(func(_ int, sel *goquery.Selection) {
		switch {
		case sel.HasClass("splGroup"):
			day.Categories = append(day.Categories, menu.Category{
				Name: cleanText(sel.Text()),
			})
			currentIdx = len(day.Categories) - 1
		case sel.HasClass("splMeal") && currentIdx >= 0:
			meal := e.extractMeal(sel)
			if meal.Name != "" && meal.Name != menu.PlaceholderName {
				cat := &day.Categories[currentIdx]
				cat.Meals = append(cat.Meals, meal)
			}
		}
	})

	kept := day.Categories[:0]
	for _, cat := range day.Categories {
		if len(cat.Meals) > 0 {
			kept = append(kept, cat)
		}
	}
	day.Categories = kept
	return day, nil
}

// extractMeal recovers all fields of a single meal block.
func (e *Extractor) extractMeal(row *goquery.Selection) menu.Meal {
	meal := menu.Meal{Name: menu.PlaceholderName}

	if name := cleanText(row.Find("span.bold").First().Text()); name != "" {
		meal.Name = name
	}

	if priceText := row.Find("div.text-right").First().Text(); priceText != "" {
		meal.Price = parsePrice(priceText)
	}

	row.Find("div.kennz table.tooltip_content tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		code := strings.ToLower(cleanText(cells.Eq(0).Text()))
		if code == "" {
			return
		}
		// Unknown codes keep the tooltip's own label text; the code is
		// never dropped.
		name := e.tables.AllergenText(code, cleanText(cells.Eq(1).Text()))
		meal.Allergens = append(meal.Allergens, menu.Allergen{Code: code, Name: name})
	})

	row.Find("img, i").Each(func(_ int, el *goquery.Selection) {
		tag := iconUnknown
		isRating := false
		if el.Is("img") {
			src, _ := el.Attr("src")
			tag, isRating = classifyImageIcon(src)
		} else if class, ok := el.Attr("class"); ok {
			tag = classifyInlineIcon(class)
		}

		if metric := adjacentMetricText(el); metric != "" {
			meal.Sustainability = append(meal.Sustainability, metric)
		}

		if tag != iconUnknown && !isRating {
			meal.DietaryIcons = append(meal.DietaryIcons, menu.DietaryIcon{
				Type:        tag,
				Description: e.tables.IconText(tag),
			})
		}
	})

	return meal
}

// parsePrice extracts the three-tier price from text like
// "EUR 2,95 / 4,20 / 5,50". Token order is student, employee, guest.
// Fewer than three numeric tokens means no price, not an error.
func parsePrice(text string) *menu.Price {
	tokens := priceToken.FindAllString(text, -1)
	if len(tokens) < 3 {
		return nil
	}
	normalize := func(s string) string { return strings.ReplaceAll(s, ",", ".") }
	return &menu.Price{
		Student:  normalize(tokens[0]),
		Employee: normalize(tokens[1]),
		Guest:    normalize(tokens[2]),
	}
}

// adjacentMetricText returns the descriptive text of the icon's following
// div.shocl_content sibling when it talks about CO2 or water consumption.
func adjacentMetricText(el *goquery.Selection) string {
	tooltip := el.NextAllFiltered("div.shocl_content").First()
	if tooltip.Length() == 0 {
		return ""
	}
	text := cleanText(tooltip.Text())
	if strings.Contains(text, "CO2") || strings.Contains(text, "Wasserverbrauch") {
		return text
	}
	return ""
}

// cleanText collapses all whitespace runs to single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
