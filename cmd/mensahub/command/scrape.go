package command

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mensahub/internal/menu"
)

var scrapeTimeout time.Duration

// scrapeCmd fetches the rolling window once and replaces the snapshot.
var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch the rolling menu window and store the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
		defer cancel()

		week, err := a.scraper.ScrapeWeek(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Stored %d day(s) for %s\n", len(week.WeekData), week.Mensa)
		for _, day := range week.WeekData {
			fmt.Printf("  %s (%s): %d meal(s)\n", day.Date, day.Day, countDayMeals(day))
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().DurationVar(&scrapeTimeout, "timeout", 5*time.Minute, "overall scrape timeout")
	rootCmd.AddCommand(scrapeCmd)
}

func countDayMeals(day menu.DayMenu) int {
	total := 0
	for _, cat := range day.Categories {
		total += len(cat.Meals)
	}
	return total
}
