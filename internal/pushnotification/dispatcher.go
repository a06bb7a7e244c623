package pushnotification

import (
	"context"
	"log/slog"

	"github.com/missionctl/missionctl/internal/eventbus"
)

type Dispatcher struct {
	eventBus *eventbus.Bus
	sender   *Sender
}

func NewDispatcher(eventBus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{
		eventBus: eventBus,
		sender:   sender,
	}
}

// Run forwards task.assigned events as push notifications until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	subID, ch := d.eventBus.Subscribe(256, eventbus.TaskAssigned)
	defer d.eventBus.Unsubscribe(subID)

	slog.InfoContext(ctx, "push notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "push notification dispatcher stopped")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			d.sender.SendToAll(ctx, assignedPayload(event))
		}
	}
}

func assignedPayload(event *eventbus.Event) *NotificationPayload {
	agent := event.Metadata["agent"]
	if agent == "" {
		agent = "assistant"
	}
	return &NotificationPayload{
		Title: "Task assigned to " + agent,
		Body:  event.Metadata["title"],
		URL:   "/tasks",
		Tag:   event.ResourceID,
	}
}
