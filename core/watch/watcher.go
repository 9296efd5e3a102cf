package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

var (
	notifyCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schedulink",
		Subsystem: "watch",
		Name:      "notifications_emitted_total",
		Help:      "One-shot notifications emitted, per loop.",
	}, []string{"loop"})
	pollErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schedulink",
		Subsystem: "watch",
		Name:      "poll_errors_total",
		Help:      "Swallowed polling errors, per loop.",
	}, []string{"loop"})
)

// Notification is a one-shot user-visible alert.
type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives notifications raised by a watcher.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Watcher polls a class for state transitions not caused by the local viewer
// and raises at most one alert per transition, deduplicated through a
// SeenStore. Polling errors never disrupt the primary workflow: they are
// counted, logged at debug and otherwise swallowed. A Watcher stops
// deterministically when its context is cancelled.
type Watcher struct {
	svc      classroom.ServiceInterface
	actor    user.User
	classID  string
	seen     SeenStore
	notifier Notifier
	interval time.Duration
	logger   core.Logger
}

// NewStudentWatcher watches the student's submissions for fresh teacher
// comments (15s by default).
func NewStudentWatcher(
	svc classroom.ServiceInterface,
	actor user.User,
	classID string,
	seen SeenStore,
	notifier Notifier,
	conf *core.Config,
	logger core.Logger,
) *Watcher {
	return &Watcher{
		svc:      svc,
		actor:    actor,
		classID:  classID,
		seen:     seen,
		notifier: notifier,
		interval: conf.Polling.StudentNotifyInterval,
		logger:   logger,
	}
}

// NewTeacherWatcher watches the class's tasks for completions (20s by default).
func NewTeacherWatcher(
	svc classroom.ServiceInterface,
	actor user.User,
	classID string,
	seen SeenStore,
	notifier Notifier,
	conf *core.Config,
	logger core.Logger,
) *Watcher {
	return &Watcher{
		svc:      svc,
		actor:    actor,
		classID:  classID,
		seen:     seen,
		notifier: notifier,
		interval: conf.Polling.TeacherNotifyInterval,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. The first poll fires after one interval,
// not immediately: the viewer has just loaded the lists it is watching.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// Poll runs a single check immediately, outside the Run loop. The HTTP
// notifications endpoint uses this with the client driving the cadence.
func (w *Watcher) Poll(ctx context.Context) { w.poll(ctx) }

func (w *Watcher) poll(ctx context.Context) {
	var err error
	if w.actor.IsTeacher() {
		err = w.checkCompletedTasks(ctx)
	} else {
		err = w.checkTeacherComments(ctx)
	}
	if err != nil && ctx.Err() == nil {
		loop := "student"
		if w.actor.IsTeacher() {
			loop = "teacher"
		}
		pollErrCount.WithLabelValues(loop).Inc()
		if w.logger != nil {
			w.logger.Debug(fmt.Sprintf("%s watcher poll: %v", loop, err))
		}
	}
}

// checkTeacherComments notifies once per submission that carries a teacher
// comment. The seen key is the submission id, so an edited comment does not
// re-notify.
func (w *Watcher) checkTeacherComments(ctx context.Context) error {
	tasks, err := w.svc.QueryTasks(ctx, w.classID)
	if err != nil {
		return err
	}

	for _, tsk := range tasks {
		sub, err := w.svc.GetSubmission(ctx, tsk.ID, w.actor.ID)
		if err != nil {
			if err == classroom.ErrSubmissionNotFound {
				continue
			}
			return err
		}
		if sub.TeacherComment == "" {
			continue
		}

		key := "seen-comment-" + sub.ID
		seen, err := w.seen.Contains(ctx, key)
		if err != nil {
			return err
		}
		if seen {
			continue
		}
		if err = w.seen.Add(ctx, key); err != nil {
			return err
		}
		w.emit("student", Notification{
			Title:   "New feedback!",
			Message: fmt.Sprintf("Your teacher commented on %q", tsk.Title),
			At:      time.Now().UTC(),
		})
	}
	return nil
}

// checkCompletedTasks notifies once per done task, listing the students that
// submitted. The key is the task id alone: a second student completing an
// already-done task produces no additional notification (accepted limitation).
func (w *Watcher) checkCompletedTasks(ctx context.Context) error {
	tasks, err := w.svc.QueryTasks(ctx, w.classID)
	if err != nil {
		return err
	}

	for _, tsk := range tasks {
		if tsk.Status != classroom.StatusDone {
			continue
		}

		key := "notified-done-" + tsk.ID
		seen, err := w.seen.Contains(ctx, key)
		if err != nil {
			return err
		}
		if seen {
			continue
		}

		subs, err := w.svc.QuerySubmissions(ctx, w.actor, tsk.ID)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(subs))
		for _, sub := range subs {
			names = append(names, sub.StudentName)
		}
		if len(names) == 0 {
			continue // nobody submitted yet; stay quiet until someone has
		}

		w.emit("teacher", Notification{
			Title:   "Task completed!",
			Message: fmt.Sprintf("%s completed %q", strings.Join(names, ", "), tsk.Title),
			At:      time.Now().UTC(),
		})
		if err = w.seen.Add(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) emit(loop string, n Notification) {
	notifyCount.WithLabelValues(loop).Inc()
	w.notifier.Notify(n)
}
