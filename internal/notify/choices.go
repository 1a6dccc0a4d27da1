package notify

import (
	"errors"
	"fmt"
	"strings"

	"mensahub/internal/user"
)

// ErrNotFound marks a choice or lookup referencing a user or notification
// that no longer exists.
var ErrNotFound = errors.New("not found")

// ErrBadChoice marks malformed choice data.
var ErrBadChoice = errors.New("malformed choice data")

// HandleChoice applies one echoed choice (see reminderChoices) and returns
// the confirmation text for the user. A reminder decision whose embedded
// date was superseded by a newer trigger is rejected as already processed.
func (e *Engine) HandleChoice(userID, data string) (string, error) {
	parts := strings.Split(data, ":")
	if len(parts) < 3 {
		return "", ErrBadChoice
	}

	switch parts[0] {
	case reminderPrefix:
		if len(parts) != 4 {
			return "", ErrBadChoice
		}
		return e.handleReminder(userID, parts[2], parts[3], parts[1] == "SET")
	case keywordPrefix:
		return e.handleKeep(userID, parts[2], parts[1] == "KEEP")
	}
	return "", ErrBadChoice
}

func (e *Engine) handleReminder(userID, notifID, date string, set bool) (string, error) {
	profiles, err := e.users.Load()
	if err != nil {
		return "", fmt.Errorf("loading user data: %w", err)
	}
	notif, err := findNotification(profiles, userID, notifID)
	if err != nil {
		return "", err
	}

	if err := notif.DecideReminder(date, set); err != nil {
		return fmt.Sprintf("Reminder status was already set for %s.", date), err
	}
	if err := e.users.Save(profiles); err != nil {
		return "", fmt.Errorf("saving user data: %w", err)
	}

	if set {
		return fmt.Sprintf("Reminder set for %q on %s at 10:00 AM.", notif.Keyword, date), nil
	}
	return fmt.Sprintf("No reminder set for %q on %s.", notif.Keyword, date), nil
}

func (e *Engine) handleKeep(userID, notifID string, keep bool) (string, error) {
	profiles, err := e.users.Load()
	if err != nil {
		return "", fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[userID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	notif, ok := profile.Notifications[notifID]
	if !ok {
		return "", fmt.Errorf("notification %s: %w", notifID, ErrNotFound)
	}

	var text string
	if keep {
		notif.SetActive(true)
		text = fmt.Sprintf("Alert for keyword %q will remain active for future menu updates.", notif.Keyword)
	} else {
		delete(profile.Notifications, notifID)
		text = fmt.Sprintf("Alert for keyword %q has been deleted.", notif.Keyword)
	}
	if err := e.users.Save(profiles); err != nil {
		return "", fmt.Errorf("saving user data: %w", err)
	}
	return text, nil
}

func findNotification(profiles user.Profiles, userID, notifID string) (*user.Notification, error) {
	profile, ok := profiles[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	notif, ok := profile.Notifications[notifID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notifID, ErrNotFound)
	}
	return notif, nil
}
