package scrape

import (
	"regexp"
	"strings"
)

// iconUnknown tags an icon element matching no known pattern. Unknown icons
// never make it into a meal's dietary icon list.
const iconUnknown = "unknown"

// iconPattern maps a substring of an icon's identifying attribute to its
// semantic tag. The table is ordered; the first match wins. New upstream
// pictograms are new rows here, not new code.
type iconPattern struct {
	substr string
	tag    string
}

var imageIconPatterns = []iconPattern{
	{"/1.png", "vegetarian"},
	{"/15.png", "vegan"},
	{"/43.png", "klimaessen"},
	{"/41.png", "fairtrade"},
	{"/38.png", "sustainable_fish"},
	{"ampel_gruen", "ampel_green"},
	{"ampel_gelb", "ampel_yellow"},
	{"ampel_rot", "ampel_red"},
}

// The two rating-scale patterns encode a letter grade in the identifier.
// They feed the sustainability metrics instead of the dietary icon list.
var (
	co2RatingPattern = regexp.MustCompile(`CO2_bewertung_([A-Za-z])`)
	h2oRatingPattern = regexp.MustCompile(`H2O_bewertung_([A-Za-z])`)
)

// classifyImageIcon resolves an img source URL to its semantic tag and
// reports whether the tag is a rating-scale grade.
func classifyImageIcon(src string) (tag string, isRating bool) {
	if m := co2RatingPattern.FindStringSubmatch(src); m != nil {
		return "co2_rating_" + strings.ToUpper(m[1]), true
	}
	if m := h2oRatingPattern.FindStringSubmatch(src); m != nil {
		return "H2O_rating_" + strings.ToUpper(m[1]), true
	}
	for _, p := range imageIconPatterns {
		if strings.Contains(src, p.substr) {
			return p.tag, false
		}
	}
	return iconUnknown, false
}

// classifyInlineIcon resolves an <i> element's class list to its tag.
func classifyInlineIcon(class string) string {
	if strings.Contains(class, "glyphicons-temperature-low") {
		return "cooled_meal"
	}
	return iconUnknown
}
