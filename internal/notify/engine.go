package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"mensahub/internal/menu"
	"mensahub/internal/store"
	"mensahub/internal/user"
)

// Engine runs the two evaluation passes over the current snapshot and
// handles the replies to triggered alerts. All profile mutation is batched:
// one save per changed user, pruning once at the end of a pass.
type Engine struct {
	menus     store.MenuStore
	users     store.UserStore
	messenger Messenger
	log       *zap.Logger
	now       func() time.Time
}

// NewEngine wires an Engine.
func NewEngine(menus store.MenuStore, users store.UserStore, messenger Messenger, log *zap.Logger) *Engine {
	return &Engine{
		menus:     menus,
		users:     users,
		messenger: messenger,
		log:       log,
		now:       time.Now,
	}
}

// WithClock overrides the engine's clock for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// RunMatchPass evaluates every active notification of every unmuted user
// against the snapshot and fires an alert for each keyword whose earliest
// future occurrence is newer than the last one reported. Users whose
// delivery fails as unreachable are pruned after the pass completes.
func (e *Engine) RunMatchPass(ctx context.Context) error {
	week, err := e.menus.Load()
	if err != nil {
		return fmt.Errorf("loading menu snapshot: %w", err)
	}
	if week == nil || len(week.WeekData) == 0 {
		e.log.Warn("match pass skipped, menu data unavailable")
		return nil
	}

	profiles, err := e.users.Load()
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}

	var unreachable []string
	for _, id := range profiles.SortedIDs() {
		changed, gone := e.matchUser(ctx, week, id, profiles[id])
		if changed {
			if err := e.users.Save(profiles); err != nil {
				return fmt.Errorf("saving user data: %w", err)
			}
		}
		if gone {
			unreachable = append(unreachable, id)
		}
	}

	if len(unreachable) > 0 {
		e.log.Info("pruning unreachable users", zap.Int("count", len(unreachable)))
		for _, id := range unreachable {
			delete(profiles, id)
		}
		if err := e.users.Save(profiles); err != nil {
			return fmt.Errorf("saving user data after pruning: %w", err)
		}
	}
	return nil
}

// CheckUser runs the match logic for a single user, used right after a new
// keyword is registered so the subscriber gets an instant answer.
func (e *Engine) CheckUser(ctx context.Context, userID string) error {
	week, err := e.menus.Load()
	if err != nil {
		return fmt.Errorf("loading menu snapshot: %w", err)
	}
	if week == nil || len(week.WeekData) == 0 {
		return nil
	}
	profiles, err := e.users.Load()
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}
	profile, ok := profiles[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if changed, _ := e.matchUser(ctx, week, userID, profile); changed {
		if err := e.users.Save(profiles); err != nil {
			return fmt.Errorf("saving user data: %w", err)
		}
	}
	return nil
}

// matchUser fires every due notification for one user. It reports whether
// the profile changed and whether the user turned out unreachable.
func (e *Engine) matchUser(ctx context.Context, week *menu.WeekMenu, id string, profile *user.Profile) (changed, unreachable bool) {
	if profile.IsMuted || len(profile.Notifications) == 0 {
		return false, false
	}

	today := e.now()
	for _, notifID := range sortedNotifIDs(profile.Notifications) {
		notif := profile.Notifications[notifID]
		if !notif.ActiveForFuture {
			continue
		}

		occurrence := week.FirstOccurrence(notif.Keyword, today)
		if !notif.ShouldFire(occurrence) {
			continue
		}

		text := fmt.Sprintf(
			"MEAL ALERT: your keyword %q is on the menu on %s. What would you like to do next?",
			notif.Keyword, displayDate(occurrence))
		err := e.messenger.Send(ctx, id, text, reminderChoices(notifID, occurrence))
		if IsUnreachable(err) {
			e.log.Warn("user unreachable, queued for pruning", zap.String("user", id))
			return changed, true
		}
		if err != nil {
			e.log.Error("alert delivery failed",
				zap.String("user", id), zap.String("keyword", notif.Keyword), zap.Error(err))
			continue
		}

		notif.Fire(occurrence)
		changed = true
		e.log.Info("alert fired",
			zap.String("user", id), zap.String("keyword", notif.Keyword),
			zap.String("date", occurrence))
	}
	return changed, false
}

// RunReminderPass sends the same-day reminders armed by earlier alerts.
// Menus can change between trigger and reminder day, so the keyword is
// re-validated against today's meals first; a vanished meal produces a
// "removed from menu" message and returns the watch to pending.
func (e *Engine) RunReminderPass(ctx context.Context) error {
	week, err := e.menus.Load()
	if err != nil {
		return fmt.Errorf("loading menu snapshot: %w", err)
	}
	profiles, err := e.users.Load()
	if err != nil {
		return fmt.Errorf("loading user data: %w", err)
	}

	today := e.now().Format(menu.DateLayout)
	var todayNames []string
	if week != nil {
		todayNames = week.MealNamesOn(today)
	}
	if todayNames == nil {
		e.log.Warn("no menu for today, skipping reminders", zap.String("date", today))
		return nil
	}

	for _, id := range profiles.SortedIDs() {
		profile := profiles[id]
		changed := false
		for _, notifID := range sortedNotifIDs(profile.Notifications) {
			notif := profile.Notifications[notifID]
			if !notif.DueReminder(today) {
				continue
			}

			if containsKeyword(todayNames, notif.Keyword) {
				text := fmt.Sprintf(
					"REMINDER: your meal %q is on the menu today (%s).", notif.Keyword, today)
				if err := e.messenger.Send(ctx, id, text, nil); err != nil {
					e.log.Error("reminder delivery failed",
						zap.String("user", id), zap.Error(err))
					continue
				}
				notif.MarkReminderSent()
			} else {
				text := fmt.Sprintf(
					"MENU CHANGE: the meal matching %q scheduled for today (%s) was removed from the menu.",
					notif.Keyword, today)
				if err := e.messenger.Send(ctx, id, text, nil); err != nil {
					e.log.Error("menu change delivery failed",
						zap.String("user", id), zap.Error(err))
					continue
				}
				notif.ResetToPending()
			}
			changed = true
		}
		if changed {
			if err := e.users.Save(profiles); err != nil {
				return fmt.Errorf("saving user data: %w", err)
			}
		}
	}
	return nil
}

func sortedNotifIDs(notifications map[string]*user.Notification) []string {
	ids := make([]string, 0, len(notifications))
	for id := range notifications {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

func containsKeyword(names []string, keyword string) bool {
	needle := strings.ToLower(keyword)
	for _, name := range names {
		if strings.Contains(name, needle) {
			return true
		}
	}
	return false
}

func displayDate(date string) string {
	if t, err := time.Parse(menu.DateLayout, date); err == nil {
		return t.Format("Monday, Jan 02")
	}
	return date
}
