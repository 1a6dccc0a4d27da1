package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"mensahub/internal/menu"
)

// statsCmd prints the snapshot summary.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the stored menu snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		week, err := a.menus.Load()
		if err != nil {
			return err
		}
		if week == nil {
			fmt.Println("No menu snapshot stored yet.")
			return nil
		}

		stats := menu.Summarize(week)
		fmt.Printf("Mensa:       %s\n", week.Mensa)
		fmt.Printf("Date range:  %s .. %s (%d day(s))\n", stats.FirstDate, stats.LastDate, stats.Days)
		fmt.Printf("Total meals: %d\n", stats.TotalMeals)
		fmt.Printf("  vegan:      %d\n", stats.Vegan)
		fmt.Printf("  vegetarian: %d\n", stats.Vegetarian)
		fmt.Printf("  klimaessen: %d\n", stats.Klimaessen)
		fmt.Printf("  low CO2:    %d\n", stats.LowCO2)
		fmt.Printf("  low H2O:    %d\n", stats.LowH2O)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
