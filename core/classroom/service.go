package classroom

import (
	"context"
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

var (
	// errors
	ErrClassNotFound      = errors.New("class not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrCodeExists         = errors.New("a class with this join code already exists")
	ErrAlreadyMember      = errors.New("you are already a member of this class")
	ErrForbidden          = errors.New("permission denied")
)

// maxCodeAttempts bounds join-code regeneration on collision.
const maxCodeAttempts = 5

type (
	Repository interface {
		// CreateClass fails with ErrCodeExists when the join code is taken.
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		// GetClassByCode matches the join code case-insensitively.
		GetClassByCode(ctx context.Context, code string) (Class, error)
		QueryClassesByOwner(ctx context.Context, teacherID string) ([]Class, error)
		QueryClassesByStudent(ctx context.Context, studentID string) ([]Class, error)

		// AddMembership fails with ErrAlreadyMember on a duplicate
		// (classID, studentID) pair.
		AddMembership(ctx context.Context, mbr Membership) (Membership, error)
		IsMember(ctx context.Context, classID, studentID string) (bool, error)
		QueryClassStudents(ctx context.Context, classID string) ([]user.User, error)

		CreateTask(ctx context.Context, tsk Task) (Task, error)
		GetTaskByID(ctx context.Context, id string) (Task, error)
		QueryTasksByClass(ctx context.Context, classID string) ([]Task, error)
		// UpdateTask only writes set fields; zero values are left unchanged.
		UpdateTask(ctx context.Context, tsk Task) (Task, error)
		DeleteTask(ctx context.Context, id string) error

		// UpsertSubmission is keyed by (TaskID, StudentID); an existing row is
		// fully overwritten, no history is kept.
		UpsertSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, taskID, studentID string) (Submission, error)
		QuerySubmissionsByTask(ctx context.Context, taskID string) ([]Submission, error)
		UpdateSubmissionComment(ctx context.Context, id, comment string) (Submission, error)
	}

	ServiceInterface interface {
		CreateClass(ctx context.Context, actor user.User, nc NewClass) (Class, error)
		GetClassByCode(ctx context.Context, code string) (Class, error)
		JoinClass(ctx context.Context, actor user.User, code string) (Class, error)
		QueryClasses(ctx context.Context, actor user.User) ([]Class, error)
		QueryClassStudents(ctx context.Context, actor user.User, classID string) ([]user.User, error)

		CreateTask(ctx context.Context, actor user.User, nt NewTask) (Task, error)
		GetTask(ctx context.Context, id string) (Task, error)
		QueryTasks(ctx context.Context, classID string) ([]Task, error)
		UpdateTask(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error)
		DeleteTask(ctx context.Context, actor user.User, id string) error
		SetTaskStatus(ctx context.Context, actor user.User, id, status string) (Task, error)

		SubmitAnswer(ctx context.Context, actor user.User, taskID string, sa SubmitAnswer) (Submission, error)
		GetSubmission(ctx context.Context, taskID, studentID string) (Submission, error)
		QuerySubmissions(ctx context.Context, actor user.User, taskID string) ([]Submission, error)
		CommentSubmission(ctx context.Context, actor user.User, submissionID, taskID, comment string) (Submission, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

// CreateClass allocates a Class with a fresh join code, regenerating on the
// improbable collision.
func (svc *service) CreateClass(ctx context.Context, actor user.User, nc NewClass) (Class, error) {
	if !actor.IsTeacher() {
		return Class{}, ErrForbidden
	}

	cls := Class{
		Name:      nc.Name,
		OwnerID:   actor.ID,
		OwnerName: actor.Name,
		CreatedAt: time.Now().UTC(),
	}

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		cls.JoinCode = GenerateJoinCode()
		var created Class
		if created, err = svc.repo.CreateClass(ctx, cls); err == nil {
			return created, nil
		}
		if err != ErrCodeExists {
			return Class{}, err
		}
	}
	return Class{}, pkgerrors.Wrap(err, "allocating join code")
}

func (svc *service) GetClassByCode(ctx context.Context, code string) (Class, error) {
	return svc.repo.GetClassByCode(ctx, strings.ToUpper(core.CleanString(code)))
}

// JoinClass enrolls the acting student into the Class matching code.
// A duplicate join attempt is rejected, not silently duplicated.
func (svc *service) JoinClass(ctx context.Context, actor user.User, code string) (Class, error) {
	if !actor.IsStudent() {
		return Class{}, ErrForbidden
	}

	cls, err := svc.GetClassByCode(ctx, code)
	if err != nil {
		return Class{}, err
	}

	_, err = svc.repo.AddMembership(ctx, Membership{
		ClassID:   cls.ID,
		StudentID: actor.ID,
		JoinedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Class{}, err
	}
	return cls, nil
}

// QueryClasses lists the classes the actor teaches or attends, depending on role.
func (svc *service) QueryClasses(ctx context.Context, actor user.User) ([]Class, error) {
	if actor.IsTeacher() {
		return svc.repo.QueryClassesByOwner(ctx, actor.ID)
	}
	return svc.repo.QueryClassesByStudent(ctx, actor.ID)
}

func (svc *service) QueryClassStudents(ctx context.Context, actor user.User, classID string) ([]user.User, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	return svc.repo.QueryClassStudents(ctx, classID)
}

func (svc *service) CreateTask(ctx context.Context, actor user.User, nt NewTask) (Task, error) {
	if !actor.IsTeacher() {
		return Task{}, ErrForbidden
	}
	cls, err := svc.repo.GetClassByID(ctx, nt.ClassID)
	if err != nil {
		return Task{}, err
	}
	if cls.OwnerID != actor.ID {
		return Task{}, ErrForbidden
	}

	return svc.repo.CreateTask(ctx, Task{
		ClassID:     nt.ClassID,
		Title:       nt.Title,
		Description: nt.Description,
		Status:      nt.Status,
		OwnerID:     actor.ID,
		DueDate:     nt.DueDate,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *service) GetTask(ctx context.Context, id string) (Task, error) {
	return svc.repo.GetTaskByID(ctx, id)
}

func (svc *service) QueryTasks(ctx context.Context, classID string) ([]Task, error) {
	return svc.repo.QueryTasksByClass(ctx, classID)
}

func (svc *service) UpdateTask(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error) {
	if err := svc.checkTaskOwner(ctx, actor, id); err != nil {
		return Task{}, err
	}
	return svc.repo.UpdateTask(ctx, Task{
		ID:          id,
		Title:       ut.Title,
		Description: ut.Description,
		Status:      ut.Status,
		DueDate:     ut.DueDate,
	})
}

func (svc *service) DeleteTask(ctx context.Context, actor user.User, id string) error {
	if err := svc.checkTaskOwner(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteTask(ctx, id)
}

// SetTaskStatus moves a Task to status. The actor must be the owning teacher
// or an enrolled student. Every transition is legal; writes are
// last-writer-wins and no merge of concurrent edits is attempted.
func (svc *service) SetTaskStatus(ctx context.Context, actor user.User, id, status string) (Task, error) {
	tsk, err := svc.repo.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if err = svc.checkClassAccess(ctx, actor, tsk.ClassID); err != nil {
		return Task{}, err
	}
	return svc.repo.UpdateTask(ctx, Task{ID: id, Status: status})
}

// SubmitAnswer upserts the actor's Submission for the Task, then applies the
// status override when one was requested. The actor must be enrolled in the
// task's class. These are two physical writes for one logical action: a
// failure between them leaves the submission saved and the status unchanged,
// which is accepted rather than rolled back.
func (svc *service) SubmitAnswer(ctx context.Context, actor user.User, taskID string, sa SubmitAnswer) (Submission, error) {
	if !actor.IsStudent() {
		return Submission{}, ErrForbidden
	}

	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return Submission{}, err
	}
	if err = svc.checkClassAccess(ctx, actor, tsk.ClassID); err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.UpsertSubmission(ctx, Submission{
		TaskID:      taskID,
		StudentID:   actor.ID,
		StudentName: actor.Name,
		TextAnswer:  sa.TextAnswer,
		FileRef:     sa.FileRef,
		ImageRef:    sa.ImageRef,
		LinkURL:     sa.LinkURL,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return Submission{}, err
	}

	if sa.StatusOverride != "" && sa.StatusOverride != tsk.Status {
		// access was checked above, so the write goes straight to the repo
		if _, err = svc.repo.UpdateTask(ctx, Task{ID: taskID, Status: sa.StatusOverride}); err != nil {
			return sub, pkgerrors.Wrap(err, "updating task status after submission")
		}
	}
	return sub, nil
}

func (svc *service) GetSubmission(ctx context.Context, taskID, studentID string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, taskID, studentID)
}

func (svc *service) QuerySubmissions(ctx context.Context, actor user.User, taskID string) ([]Submission, error) {
	if !actor.IsTeacher() {
		return nil, ErrForbidden
	}
	return svc.repo.QuerySubmissionsByTask(ctx, taskID)
}

func (svc *service) CommentSubmission(ctx context.Context, actor user.User, submissionID, taskID, comment string) (Submission, error) {
	if err := svc.checkTaskOwner(ctx, actor, taskID); err != nil {
		return Submission{}, err
	}
	return svc.repo.UpdateSubmissionComment(ctx, submissionID, comment)
}

// checkClassAccess admits the owning teacher and enrolled students.
func (svc *service) checkClassAccess(ctx context.Context, actor user.User, classID string) error {
	if actor.IsTeacher() {
		cls, err := svc.repo.GetClassByID(ctx, classID)
		if err != nil {
			return err
		}
		if cls.OwnerID != actor.ID {
			return ErrForbidden
		}
		return nil
	}

	member, err := svc.repo.IsMember(ctx, classID, actor.ID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}
	return nil
}

func (svc *service) checkTaskOwner(ctx context.Context, actor user.User, taskID string) error {
	if !actor.IsTeacher() {
		return ErrForbidden
	}
	tsk, err := svc.repo.GetTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	cls, err := svc.repo.GetClassByID(ctx, tsk.ClassID)
	if err != nil {
		return err
	}
	if cls.OwnerID != actor.ID {
		return ErrForbidden
	}
	return nil
}
