package user

import (
	"errors"
	"time"

	"mensahub/internal/menu"
)

// ErrStaleChoice rejects a reminder decision whose embedded date no longer
// matches the stored trigger date (an old prompt tapped after a newer
// trigger superseded it).
var ErrStaleChoice = errors.New("choice refers to a superseded trigger date")

// State is the derived lifecycle position of a notification.
type State int

const (
	// StatePending: keyword not yet matched in any window seen so far.
	StatePending State = iota
	// StateTriggered: matched, awaiting the user's reminder choice.
	StateTriggered
	// StateReminderDecided: the reminder prompt has been answered for the
	// current trigger date.
	StateReminderDecided
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateTriggered:
		return "triggered"
	case StateReminderDecided:
		return "reminder_decided"
	}
	return "unknown"
}

// Notification is a stored keyword watch. All lifecycle mutation goes
// through the methods below so the flags can never reach an illegal
// combination (e.g. ReminderSent without a trigger date).
type Notification struct {
	Keyword         string  `json:"keyword"`
	TriggeredDate   *string `json:"triggered_date"`
	ReminderSet     bool    `json:"reminder_set"`
	ReminderSent    bool    `json:"reminder_sent"`
	ActiveForFuture bool    `json:"active_for_future"`

	// reminderDecided distinguishes "user explicitly declined a reminder"
	// from "user has not answered yet" within the current trigger cycle.
	// Not persisted: a restart simply re-offers the choice, which is
	// idempotent because replays against an unchanged date are accepted.
	reminderDecided bool
}

// NewNotification returns a pending, future-active watch for keyword.
func NewNotification(keyword string) *Notification {
	return &Notification{Keyword: keyword, ActiveForFuture: true}
}

// State derives the lifecycle position from the stored fields.
func (n *Notification) State() State {
	if n.TriggeredDate == nil {
		return StatePending
	}
	if n.reminderDecided || n.ReminderSet {
		return StateReminderDecided
	}
	return StateTriggered
}

// Fire records a new trigger for date and resets the reminder cycle.
// Calling it with the already-stored date is the duplicate-alert case and
// must be prevented by the caller via ShouldFire.
func (n *Notification) Fire(date string) {
	d := date
	n.TriggeredDate = &d
	n.ReminderSet = false
	n.ReminderSent = false
	n.reminderDecided = false
}

// ShouldFire reports whether a match on occurrence (a date string) is a new
// occurrence: strictly later than the stored trigger date. An absent
// trigger date counts as the epoch, so any occurrence qualifies.
func (n *Notification) ShouldFire(occurrence string) bool {
	if occurrence == "" {
		return false
	}
	if n.TriggeredDate == nil {
		return true
	}
	if _, err := time.Parse(menu.DateLayout, *n.TriggeredDate); err != nil {
		// A stored date that no longer parses fails open: always eligible.
		return true
	}
	return occurrence > *n.TriggeredDate
}

// DecideReminder records the user's reminder choice for the trigger dated
// date. A date that no longer matches the stored trigger is stale and
// rejected; repeating the same decision for the current date is a no-op.
func (n *Notification) DecideReminder(date string, set bool) error {
	if n.TriggeredDate == nil || *n.TriggeredDate != date {
		return ErrStaleChoice
	}
	n.ReminderSet = set
	n.ReminderSent = false
	n.reminderDecided = true
	return nil
}

// DueReminder reports whether the daily reminder pass owes this watch a
// message for today.
func (n *Notification) DueReminder(today string) bool {
	return n.ReminderSet && !n.ReminderSent &&
		n.TriggeredDate != nil && *n.TriggeredDate == today
}

// MarkReminderSent records a delivered same-day reminder.
func (n *Notification) MarkReminderSent() {
	n.ReminderSent = true
}

// ResetToPending clears the trigger cycle after the watched meal vanished
// from the menu, returning the watch to the pending state.
func (n *Notification) ResetToPending() {
	n.TriggeredDate = nil
	n.ReminderSet = false
	n.ReminderSent = false
	n.reminderDecided = false
}

// SetActive flips whether the watch keeps re-triggering on later distinct
// occurrences.
func (n *Notification) SetActive(active bool) {
	n.ActiveForFuture = active
}
