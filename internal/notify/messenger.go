// Package notify evaluates keyword subscriptions against the current menu
// snapshot and drives each notification's trigger/reminder lifecycle.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnreachable marks a delivery failure caused by the recipient no longer
// being reachable (client gone, chat closed). Unreachable recipients are
// pruned after the full pass; any other delivery error is transient.
var ErrUnreachable = errors.New("recipient unreachable")

// IsUnreachable classifies a delivery error.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// Choice is one structured reply option attached to an outbound message.
// Data is echoed back verbatim by the client and fed to Engine.HandleChoice.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Messenger delivers outbound messages. Implementations live at the
// transport boundary (UDP push, chat bridge); the engine only sees this
// interface.
type Messenger interface {
	Send(ctx context.Context, recipientID, text string, choices []Choice) error
}

// Choice data prefixes, mirrored in HandleChoice.
const (
	reminderPrefix = "REMINDER"
	keywordPrefix  = "KWFOUND"
)

func reminderChoices(notifID, date string) []Choice {
	return []Choice{
		{Label: "Set 10 AM Reminder", Data: fmt.Sprintf("%s:SET:%s:%s", reminderPrefix, notifID, date)},
		{Label: "Don't Set Reminder", Data: fmt.Sprintf("%s:NO:%s:%s", reminderPrefix, notifID, date)},
		{Label: "Keep Active for Future", Data: fmt.Sprintf("%s:KEEP:%s", keywordPrefix, notifID)},
		{Label: "Delete Alert Now", Data: fmt.Sprintf("%s:DELETE:%s", keywordPrefix, notifID)},
	}
}
