package classroom

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

// Board keeps one viewer's local snapshot of a class's tasks and applies
// status changes optimistically: the new status is visible locally before the
// write is confirmed, then reconciled by re-reading the authoritative list.
// On write failure the pre-optimistic value is restored and the error
// surfaced. Writes are last-writer-wins; no merge of concurrent edits is
// attempted.
type Board struct {
	svc     ServiceInterface
	actor   user.User
	classID string

	mu    sync.RWMutex
	tasks []Task
}

func NewBoard(svc ServiceInterface, actor user.User, classID string) *Board {
	return &Board{
		svc:     svc,
		actor:   actor,
		classID: classID,
	}
}

// Refresh replaces the local snapshot wholesale with the authoritative list.
func (b *Board) Refresh(ctx context.Context) error {
	tasks, err := b.svc.QueryTasks(ctx, b.classID)
	if err != nil {
		return errors.Wrap(err, "refreshing board")
	}
	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// Tasks returns a copy of the current snapshot.
func (b *Board) Tasks() []Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tasks := make([]Task, len(b.tasks))
	copy(tasks, b.tasks)
	return tasks
}

// Columns groups the snapshot by status, in kanban column order.
func (b *Board) Columns() map[string][]Task {
	cols := make(map[string][]Task, len(AllStatuses))
	for _, status := range AllStatuses {
		cols[status] = []Task{}
	}
	for _, tsk := range b.Tasks() {
		cols[tsk.Status] = append(cols[tsk.Status], tsk)
	}
	return cols
}

// SetStatus performs the two-phase optimistic transition:
// apply tentative value, issue write, refetch-and-replace on success,
// revert-and-report on failure.
func (b *Board) SetStatus(ctx context.Context, taskID, status string) error {
	prev, ok := b.apply(taskID, status)
	if !ok {
		return ErrTaskNotFound
	}

	if _, err := b.svc.SetTaskStatus(ctx, b.actor, taskID, status); err != nil {
		b.apply(taskID, prev) // revert
		return errors.Wrap(err, "updating task status")
	}

	// reconcile with the authoritative list; the optimistic value already
	// matches the confirmed write, so a refresh failure is not fatal here
	_ = b.Refresh(ctx)
	return nil
}

// apply sets the task's local status and reports the previous value.
func (b *Board) apply(taskID, status string) (prev string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			prev = b.tasks[i].Status
			b.tasks[i].Status = status
			return prev, true
		}
	}
	return "", false
}
