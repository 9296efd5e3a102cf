package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	inmemdb "github.com/DailyDoseOfWezs/Schedulink/storage/database/inmem"
)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

type watchEnv struct {
	svc     classroom.ServiceInterface
	teacher user.User
	student user.User
	class   classroom.Class
	conf    *core.Config
}

func setupWatch(t *testing.T) *watchEnv {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.NewDB()
	svc := classroom.NewService(inmemdb.NewClassroomRepository(db))

	teacher := user.User{ID: "t1", Name: "Mr. Banza", Role: user.RoleTeacher}
	student := user.User{ID: "s1", Name: "Awe", Role: user.RoleStudent}

	cls, err := svc.CreateClass(ctx, teacher, classroom.NewClass{Name: "Physics 101"})
	require.NoError(t, err)
	_, err = svc.JoinClass(ctx, student, cls.JoinCode)
	require.NoError(t, err)

	return &watchEnv{
		svc:     svc,
		teacher: teacher,
		student: student,
		class:   cls,
		conf: &core.Config{Polling: core.PollingConfig{
			StudentNotifyInterval: 5 * time.Millisecond,
			TeacherNotifyInterval: 5 * time.Millisecond,
		}},
	}
}

func TestWatcher_studentSeesTeacherComment(t *testing.T) {
	env := setupWatch(t)
	ctx := context.Background()

	tsk, err := env.svc.CreateTask(ctx, env.teacher, classroom.NewTask{ClassID: env.class.ID, Title: "Lab report"})
	require.NoError(t, err)
	sub, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "draft"})
	require.NoError(t, err)

	rec := &recorder{}
	w := NewStudentWatcher(env.svc, env.student, env.class.ID, NewMemorySeenStore(), rec, env.conf, nil)

	// no comment yet, nothing to report
	w.poll(ctx)
	assert.Empty(t, rec.all())

	_, err = env.svc.CommentSubmission(ctx, env.teacher, sub.ID, tsk.ID, "Good work!")
	require.NoError(t, err)

	w.poll(ctx)
	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "New feedback!", notes[0].Title)
	assert.Contains(t, notes[0].Message, "Lab report")

	// repeated polls do not re-notify
	w.poll(ctx)
	w.poll(ctx)
	assert.Len(t, rec.all(), 1)

	// an edited comment does not re-notify either: the key is the submission id
	_, err = env.svc.CommentSubmission(ctx, env.teacher, sub.ID, tsk.ID, "Even better!")
	require.NoError(t, err)
	w.poll(ctx)
	assert.Len(t, rec.all(), 1)
}

func TestWatcher_teacherSeesCompletedTask(t *testing.T) {
	env := setupWatch(t)
	ctx := context.Background()

	tsk, err := env.svc.CreateTask(ctx, env.teacher, classroom.NewTask{ClassID: env.class.ID, Title: "Lab report"})
	require.NoError(t, err)

	rec := &recorder{}
	w := NewTeacherWatcher(env.svc, env.teacher, env.class.ID, NewMemorySeenStore(), rec, env.conf, nil)

	// not done yet
	w.poll(ctx)
	assert.Empty(t, rec.all())

	// done but nobody submitted: stay quiet
	_, err = env.svc.SetTaskStatus(ctx, env.student, tsk.ID, classroom.StatusDone)
	require.NoError(t, err)
	w.poll(ctx)
	assert.Empty(t, rec.all())

	_, err = env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "answer"})
	require.NoError(t, err)

	w.poll(ctx)
	notes := rec.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "Task completed!", notes[0].Title)
	assert.Contains(t, notes[0].Message, "Awe")
	assert.Contains(t, notes[0].Message, "Lab report")

	// one alert per task, even across polls
	w.poll(ctx)
	assert.Len(t, rec.all(), 1)
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	env := setupWatch(t)

	rec := &recorder{}
	w := NewStudentWatcher(env.svc, env.student, env.class.ID, NewMemorySeenStore(), rec, env.conf, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

// failingSeenStore errors on every call, like a durable store losing its
// backing connection would.
type failingSeenStore struct{}

func (failingSeenStore) Contains(context.Context, string) (bool, error) { return false, assert.AnError }
func (failingSeenStore) Add(context.Context, string) error              { return assert.AnError }

func TestWatcher_seenStoreErrorsAreCounted(t *testing.T) {
	env := setupWatch(t)
	ctx := context.Background()

	tsk, err := env.svc.CreateTask(ctx, env.teacher, classroom.NewTask{ClassID: env.class.ID, Title: "Lab report"})
	require.NoError(t, err)
	sub, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "draft"})
	require.NoError(t, err)
	_, err = env.svc.CommentSubmission(ctx, env.teacher, sub.ID, tsk.ID, "Good work!")
	require.NoError(t, err)

	rec := &recorder{}
	w := NewStudentWatcher(env.svc, env.student, env.class.ID, failingSeenStore{}, rec, env.conf, nil)

	before := testutil.ToFloat64(pollErrCount.WithLabelValues("student"))
	w.poll(ctx)

	// the dedup failure is treated like any other poll error
	assert.Empty(t, rec.all())
	assert.Equal(t, before+1, testutil.ToFloat64(pollErrCount.WithLabelValues("student")))
}

func TestMemorySeenStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySeenStore()

	seen, err := store.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Add(ctx, "k"))

	seen, err = store.Contains(ctx, "k")
	require.NoError(t, err)
	assert.True(t, seen)
}
