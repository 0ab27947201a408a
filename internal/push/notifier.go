package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
)

// Notifier sends push notifications for task lifecycle events: a single task
// offered to candidates, a task claimed, an assignment completed. It is
// purely event-driven; nothing here runs on a timer.
type Notifier struct {
	svc    *Service
	pushes *store.PushStore
	logger *slog.Logger
}

func NewNotifier(svc *Service, pushes *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{svc: svc, pushes: pushes, logger: logger}
}

// TaskOffered notifies each candidate that a new task is up for grabs.
func (n *Notifier) TaskOffered(task *model.Task, childIDs []int64) {
	n.send(task.HouseholdID, childIDs, Payload{
		Title: "New task available",
		Body:  fmt.Sprintf("%s is up for grabs (%d points)", task.Name, task.Points),
		Tag:   fmt.Sprintf("task-offer-%d", task.ID),
		URL:   fmt.Sprintf("/tasks/%d", task.ID),
	})
}

// TaskClaimed tells the other candidates the task is gone.
func (n *Notifier) TaskClaimed(task *model.Task, otherCandidates []int64) {
	n.send(task.HouseholdID, otherCandidates, Payload{
		Title: "Task claimed",
		Body:  fmt.Sprintf("%s has been claimed", task.Name),
		Tag:   fmt.Sprintf("task-offer-%d", task.ID),
	})
}

// AssignmentCompleted notifies the household's parent devices.
func (n *Notifier) AssignmentCompleted(householdID int64, taskName string, pointsEarned int) {
	n.send(householdID, nil, Payload{
		Title: "Task completed",
		Body:  fmt.Sprintf("%s done, %d points earned", taskName, pointsEarned),
	})
}

func (n *Notifier) send(householdID int64, childIDs []int64, payload Payload) {
	if n == nil || n.svc == nil {
		return
	}
	subs, err := n.pushes.ListForChildren(householdID, childIDs)
	if err != nil {
		n.logger.Error("list push subscriptions", "error", err)
		return
	}
	for i := range subs {
		sub := subs[i]
		if err := n.svc.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if derr := n.pushes.DeleteByEndpoint(householdID, sub.Endpoint); derr != nil {
					n.logger.Error("prune expired subscription", "error", derr)
				}
				continue
			}
			n.logger.Error("send push", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
