package classroom_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	inmemdb "github.com/DailyDoseOfWezs/Schedulink/storage/database/inmem"
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

type testEnv struct {
	svc     classroom.ServiceInterface
	repo    classroom.Repository
	usrRepo user.Repository
	teacher user.User
	student user.User
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := inmemdb.NewDB()
	repo := inmemdb.NewClassroomRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)

	newUser := func(name, email, role string) user.User {
		usr := user.User{Name: name, Email: email, Role: role}
		usr.SetActive(true)
		usr, err := usrRepo.CreateUser(context.Background(), usr)
		require.NoError(t, err)
		return usr
	}

	return &testEnv{
		svc:     classroom.NewService(repo),
		repo:    repo,
		usrRepo: usrRepo,
		teacher: newUser("Mr. Banza", "banza@test.cd", user.RoleTeacher),
		student: newUser("Awe", "awe@test.cd", user.RoleStudent),
	}
}

func (env *testEnv) newStudent(t *testing.T, name, email string) user.User {
	t.Helper()
	usr := user.User{Name: name, Email: email, Role: user.RoleStudent}
	usr.SetActive(true)
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createClass(t *testing.T, name string) classroom.Class {
	t.Helper()
	cls, err := env.svc.CreateClass(context.Background(), env.teacher, classroom.NewClass{Name: name})
	require.NoError(t, err)
	return cls
}

func (env *testEnv) join(t *testing.T, cls classroom.Class, st user.User) {
	t.Helper()
	_, err := env.svc.JoinClass(context.Background(), st, cls.JoinCode)
	require.NoError(t, err)
}

func (env *testEnv) createTask(t *testing.T, classID, title, status string) classroom.Task {
	t.Helper()
	tsk, err := env.svc.CreateTask(context.Background(), env.teacher, classroom.NewTask{
		ClassID: classID,
		Title:   title,
		Status:  status,
	})
	require.NoError(t, err)
	return tsk
}

func TestService_CreateClass(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	cls := env.createClass(t, "Physics 101")
	assert.NotEmpty(t, cls.ID)
	assert.Equal(t, env.teacher.ID, cls.OwnerID)
	assert.Equal(t, env.teacher.Name, cls.OwnerName)
	assert.Regexp(t, codeRegex, cls.JoinCode)

	// students cannot create classes
	_, err := env.svc.CreateClass(ctx, env.student, classroom.NewClass{Name: "Nope"})
	assert.Equal(t, classroom.ErrForbidden, err)
}

// collisionRepo rejects the first N join codes to force regeneration.
type collisionRepo struct {
	classroom.Repository
	rejects int
	codes   []string
}

func (r *collisionRepo) CreateClass(ctx context.Context, cls classroom.Class) (classroom.Class, error) {
	r.codes = append(r.codes, cls.JoinCode)
	if r.rejects > 0 {
		r.rejects--
		return classroom.Class{}, classroom.ErrCodeExists
	}
	return r.Repository.CreateClass(ctx, cls)
}

func TestService_CreateClass_codeCollision(t *testing.T) {
	env := setup(t)
	repo := &collisionRepo{Repository: inmemdb.NewClassroomRepository(inmemdb.NewDB()), rejects: 2}
	svc := classroom.NewService(repo)

	cls, err := svc.CreateClass(context.Background(), env.teacher, classroom.NewClass{Name: "Chemistry"})
	require.NoError(t, err)
	assert.Regexp(t, codeRegex, cls.JoinCode)
	assert.Len(t, repo.codes, 3) // two rejected attempts plus the accepted one

	// exhausted attempts surface the error
	repo.rejects = 100
	_, err = svc.CreateClass(context.Background(), env.teacher, classroom.NewClass{Name: "Biology"})
	assert.Error(t, err)
}

func TestService_JoinClass(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")

	// codes match case-insensitively
	joined, err := env.svc.JoinClass(ctx, env.student, strings.ToLower(cls.JoinCode))
	require.NoError(t, err)
	assert.Equal(t, cls.ID, joined.ID)

	// a duplicate join is rejected, not silently duplicated
	_, err = env.svc.JoinClass(ctx, env.student, cls.JoinCode)
	assert.Equal(t, classroom.ErrAlreadyMember, err)

	// unknown code
	_, err = env.svc.JoinClass(ctx, env.student, "ZZZZZ9")
	assert.Equal(t, classroom.ErrClassNotFound, err)

	// teachers cannot join
	_, err = env.svc.JoinClass(ctx, env.teacher, cls.JoinCode)
	assert.Equal(t, classroom.ErrForbidden, err)

	classes, err := env.svc.QueryClasses(ctx, env.student)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, cls.ID, classes[0].ID)
}

func TestService_QueryClasses(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	cls1 := env.createClass(t, "Physics 101")
	cls2 := env.createClass(t, "Calculus")

	_, err := env.svc.JoinClass(ctx, env.student, cls1.JoinCode)
	require.NoError(t, err)

	// teachers see the classes they own
	taught, err := env.svc.QueryClasses(ctx, env.teacher)
	require.NoError(t, err)
	ids := []string{taught[0].ID, taught[1].ID}
	assert.ElementsMatch(t, []string{cls1.ID, cls2.ID}, ids)

	// students see only the classes they joined
	attended, err := env.svc.QueryClasses(ctx, env.student)
	require.NoError(t, err)
	require.Len(t, attended, 1)
	assert.Equal(t, cls1.ID, attended[0].ID)
}

func TestService_QueryClassStudents(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")

	other := env.newStudent(t, "Benny", "benny@test.cd")
	for _, st := range []user.User{env.student, other} {
		_, err := env.svc.JoinClass(ctx, st, cls.JoinCode)
		require.NoError(t, err)
	}

	students, err := env.svc.QueryClassStudents(ctx, env.teacher, cls.ID)
	require.NoError(t, err)
	names := []string{students[0].Name, students[1].Name}
	assert.ElementsMatch(t, []string{"Awe", "Benny"}, names)

	_, err = env.svc.QueryClassStudents(ctx, env.student, cls.ID)
	assert.Equal(t, classroom.ErrForbidden, err)
}

func TestService_Tasks(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")

	tsk := env.createTask(t, cls.ID, "Lab report", classroom.StatusTodo)
	assert.Equal(t, env.teacher.ID, tsk.OwnerID)

	// students cannot create tasks
	_, err := env.svc.CreateTask(ctx, env.student, classroom.NewTask{ClassID: cls.ID, Title: "Nope"})
	assert.Equal(t, classroom.ErrForbidden, err)

	// only the owning teacher can edit
	otherTeacher := user.User{ID: "some-other-id", Name: "Other", Role: user.RoleTeacher}
	_, err = env.svc.UpdateTask(ctx, otherTeacher, tsk.ID, classroom.UpdateTask{Title: "Hijack"})
	assert.Equal(t, classroom.ErrForbidden, err)

	// partial update leaves unset fields unchanged
	updated, err := env.svc.UpdateTask(ctx, env.teacher, tsk.ID, classroom.UpdateTask{Description: "Due Friday"})
	require.NoError(t, err)
	assert.Equal(t, "Lab report", updated.Title)
	assert.Equal(t, "Due Friday", updated.Description)
	assert.Equal(t, classroom.StatusTodo, updated.Status)

	// a student who never joined cannot move tasks
	_, err = env.svc.SetTaskStatus(ctx, env.student, tsk.ID, classroom.StatusInProgress)
	assert.Equal(t, classroom.ErrForbidden, err)

	// nor can a teacher who does not own the class
	_, err = env.svc.SetTaskStatus(ctx, otherTeacher, tsk.ID, classroom.StatusInProgress)
	assert.Equal(t, classroom.ErrForbidden, err)

	// any enrolled member can move a task; last write wins
	env.join(t, cls, env.student)
	moved, err := env.svc.SetTaskStatus(ctx, env.student, tsk.ID, classroom.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusInProgress, moved.Status)

	moved, err = env.svc.SetTaskStatus(ctx, env.teacher, tsk.ID, classroom.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusDone, moved.Status)

	require.NoError(t, env.svc.DeleteTask(ctx, env.teacher, tsk.ID))
	_, err = env.svc.GetTask(ctx, tsk.ID)
	assert.Equal(t, classroom.ErrTaskNotFound, err)
}

func TestService_SubmitAnswer(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")
	tsk := env.createTask(t, cls.ID, "Lab report", classroom.StatusTodo)

	// teachers cannot submit
	_, err := env.svc.SubmitAnswer(ctx, env.teacher, tsk.ID, classroom.SubmitAnswer{TextAnswer: "nope"})
	assert.Equal(t, classroom.ErrForbidden, err)

	// neither can a student who never joined the class
	_, err = env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "nope"})
	assert.Equal(t, classroom.ErrForbidden, err)

	env.join(t, cls, env.student)
	sub, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "first draft"})
	require.NoError(t, err)
	assert.Equal(t, env.student.ID, sub.StudentID)
	assert.Equal(t, "first draft", sub.TextAnswer)

	// a second submit overwrites the first; no history is kept
	again, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{
		TextAnswer: "final version",
		LinkURL:    "https://example.com/report",
	})
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, "final version", again.TextAnswer)

	subs, err := env.svc.QuerySubmissions(ctx, env.teacher, tsk.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "final version", subs[0].TextAnswer)

	// the status override advances the board in the same action
	_, err = env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{
		TextAnswer:     "final version",
		StatusOverride: classroom.StatusDone,
	})
	require.NoError(t, err)
	tsk, err = env.svc.GetTask(ctx, tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusDone, tsk.Status)
}

func TestService_SubmitAnswer_statusWriteFails(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")
	tsk := env.createTask(t, cls.ID, "Lab report", classroom.StatusTodo)
	env.join(t, cls, env.student)

	// reads go through, the status write after the upsert fails
	failSvc := classroom.NewService(&failingStatusRepo{Repository: env.repo})

	sub, err := failSvc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{
		TextAnswer:     "final version",
		StatusOverride: classroom.StatusDone,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "updating task status after submission")

	// the first write stuck and is returned alongside the error
	assert.NotEmpty(t, sub.ID)
	stored, err := env.svc.GetSubmission(ctx, tsk.ID, env.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "final version", stored.TextAnswer)

	// the second write did not
	refreshed, err := env.svc.GetTask(ctx, tsk.ID)
	require.NoError(t, err)
	assert.Equal(t, classroom.StatusTodo, refreshed.Status)
}

func TestService_CommentSubmission(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	cls := env.createClass(t, "Physics 101")
	tsk := env.createTask(t, cls.ID, "Lab report", classroom.StatusTodo)

	env.join(t, cls, env.student)
	sub, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "draft"})
	require.NoError(t, err)

	// students cannot comment
	_, err = env.svc.CommentSubmission(ctx, env.student, sub.ID, tsk.ID, "self-five")
	assert.Equal(t, classroom.ErrForbidden, err)

	commented, err := env.svc.CommentSubmission(ctx, env.teacher, sub.ID, tsk.ID, "Good work!")
	require.NoError(t, err)
	assert.Equal(t, "Good work!", commented.TeacherComment)

	// a re-submission overwrites the answer but keeps the feedback
	again, err := env.svc.SubmitAnswer(ctx, env.student, tsk.ID, classroom.SubmitAnswer{TextAnswer: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "Good work!", again.TeacherComment)

	// teacher-only listing
	_, err = env.svc.QuerySubmissions(ctx, env.student, tsk.ID)
	assert.Equal(t, classroom.ErrForbidden, err)
}

func TestGenerateJoinCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := classroom.GenerateJoinCode()
		assert.Regexp(t, codeRegex, code)
		seen[code] = struct{}{}
	}
	// collisions at 36^6 keyspace would point at a broken generator
	assert.Greater(t, len(seen), 90)
}
