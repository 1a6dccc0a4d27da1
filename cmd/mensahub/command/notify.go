package command

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mensahub/internal/notify"
)

var runReminders bool

// notifyCmd runs one evaluation pass from the command line. Alerts are
// printed instead of pushed, so the pass can be inspected without a live
// push server.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run a notification pass against the stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.log.Sync()

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		engine := notify.NewEngine(a.menus, a.users, consoleMessenger{}, a.log)
		if runReminders {
			return engine.RunReminderPass(ctx)
		}
		return engine.RunMatchPass(ctx)
	},
}

func init() {
	notifyCmd.Flags().BoolVar(&runReminders, "reminders", false, "run the daily reminder pass instead of the match pass")
	rootCmd.AddCommand(notifyCmd)
}

// consoleMessenger prints alerts to stdout.
type consoleMessenger struct{}

func (consoleMessenger) Send(ctx context.Context, recipientID, text string, choices []notify.Choice) error {
	fmt.Printf("[%s] %s\n", recipientID, text)
	for _, choice := range choices {
		fmt.Printf("    -> %s (%s)\n", choice.Label, choice.Data)
	}
	return nil
}
