// Package notify persists activity records and pushes them to the owner's
// personal channel.
package notify

import (
	"context"
	"fmt"

	"sparkchat/pkg/logger"
	"sparkchat/pkg/models"
	"sparkchat/pkg/realtime"
	"sparkchat/pkg/store"
)

// Emitter delivers an event to a single user's live connection, if any.
type Emitter interface {
	SendToUser(userID, event string, payload any)
}

// Notifier centralizes the self-action-suppression rule and the personal
// channel fan-out. Emit may be nil for callers that only persist.
type Notifier struct {
	Emit Emitter
}

func New(emit Emitter) *Notifier {
	return &Notifier{Emit: emit}
}

// Record persists an activity for owner triggered by actor and pushes it to
// the owner's personal channel. Self-actions are suppressed entirely: when
// owner equals actor nothing is persisted or emitted and (nil, nil) is
// returned.
func (n *Notifier) Record(ctx context.Context, owner, actor string, typ models.ActivityType, refs models.ActivityRefs) (*models.Activity, error) {
	if owner == "" || actor == "" {
		return nil, fmt.Errorf("owner and actor required")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown activity type: %s", typ)
	}
	if owner == actor {
		return nil, nil
	}
	act := &models.Activity{
		Owner:        owner,
		Actor:        actor,
		Type:         typ,
		ActivityRefs: refs,
	}
	if err := store.SaveActivity(act); err != nil {
		return nil, err
	}
	if n.Emit != nil {
		n.Emit.SendToUser(owner, realtime.EvtActivityNew, act)
	}
	logger.Debug("activity_recorded", "owner", owner, "actor", actor, "type", string(typ))
	return act, nil
}
