package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

type classRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	JoinCode  string      `db:"join_code"`
	OwnerID   string      `db:"owner_id"`
	OwnerName null.String `db:"owner_name"`
	CreatedAt null.Time   `db:"created_at"`
}

func unpackClass(row classRow) classroom.Class {
	return classroom.Class{
		ID:        row.ID,
		Name:      row.Name,
		JoinCode:  row.JoinCode,
		OwnerID:   row.OwnerID,
		OwnerName: row.OwnerName.String,
		CreatedAt: row.CreatedAt.Time,
	}
}

type taskRow struct {
	ID          string      `db:"id"`
	ClassID     string      `db:"class_id"`
	Title       string      `db:"title"`
	Description null.String `db:"description"`
	Status      string      `db:"status"`
	OwnerID     string      `db:"owner_id"`
	DueDate     null.Time   `db:"due_date"`
	CreatedAt   null.Time   `db:"created_at"`
}

func unpackTask(row taskRow) classroom.Task {
	return classroom.Task{
		ID:          row.ID,
		ClassID:     row.ClassID,
		Title:       row.Title,
		Description: row.Description.String,
		Status:      row.Status,
		OwnerID:     row.OwnerID,
		DueDate:     row.DueDate.Ptr(),
		CreatedAt:   row.CreatedAt.Time,
	}
}

type submissionRow struct {
	ID             string      `db:"id"`
	TaskID         string      `db:"task_id"`
	StudentID      string      `db:"student_id"`
	StudentName    null.String `db:"student_name"`
	TextAnswer     null.String `db:"text_answer"`
	FileRef        null.String `db:"file_ref"`
	ImageRef       null.String `db:"image_ref"`
	LinkURL        null.String `db:"link_url"`
	SubmittedAt    null.Time   `db:"submitted_at"`
	TeacherComment null.String `db:"teacher_comment"`
}

func unpackSubmission(row submissionRow) classroom.Submission {
	return classroom.Submission{
		ID:             row.ID,
		TaskID:         row.TaskID,
		StudentID:      row.StudentID,
		StudentName:    row.StudentName.String,
		TextAnswer:     row.TextAnswer.String,
		FileRef:        row.FileRef.String,
		ImageRef:       row.ImageRef.String,
		LinkURL:        row.LinkURL.String,
		SubmittedAt:    row.SubmittedAt.Time,
		TeacherComment: row.TeacherComment.String,
	}
}

// selectClass joins the owner's name in, like the original listing views.
const selectClass = `
	SELECT c.id, c.name, c.join_code, c.owner_id, u.name AS owner_name, c.created_at
	FROM class c
	JOIN "user" u ON u.id = c.owner_id`

const selectSubmission = `
	SELECT s.id, s.task_id, s.student_id, u.name AS student_name, s.text_answer,
	       s.file_ref, s.image_ref, s.link_url, s.submitted_at, s.teacher_comment
	FROM task_submission s
	JOIN "user" u ON u.id = s.student_id`

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClass(ctx context.Context, cls classroom.Class) (classroom.Class, error) {
	cls.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO class (id, name, join_code, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		cls.ID, cls.Name, strings.ToUpper(cls.JoinCode), cls.OwnerID, cls.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Class{}, classroom.ErrCodeExists
		}
		return classroom.Class{}, errors.Wrap(err, "inserting class")
	}
	cls.JoinCode = strings.ToUpper(cls.JoinCode)
	return cls, nil
}

func (repo classroomRepository) GetClassByID(ctx context.Context, id string) (classroom.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, selectClass+" WHERE c.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Class{}, classroom.ErrClassNotFound
		}
		return classroom.Class{}, errors.Wrap(err, "finding class by ID")
	}
	return unpackClass(row), nil
}

func (repo classroomRepository) GetClassByCode(ctx context.Context, code string) (classroom.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, selectClass+" WHERE UPPER(c.join_code) = UPPER($1)", code); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Class{}, classroom.ErrClassNotFound
		}
		return classroom.Class{}, errors.Wrap(err, "finding class by code")
	}
	return unpackClass(row), nil
}

func (repo classroomRepository) QueryClassesByOwner(ctx context.Context, teacherID string) ([]classroom.Class, error) {
	var rows []classRow
	err := repo.db.SelectContext(ctx, &rows,
		selectClass+" WHERE c.owner_id = $1 ORDER BY c.created_at DESC", teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes by owner")
	}
	return unpackClasses(rows), nil
}

func (repo classroomRepository) QueryClassesByStudent(ctx context.Context, studentID string) ([]classroom.Class, error) {
	var rows []classRow
	err := repo.db.SelectContext(ctx, &rows, selectClass+`
		JOIN class_member m ON m.class_id = c.id
		WHERE m.student_id = $1
		ORDER BY m.joined_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes by student")
	}
	return unpackClasses(rows), nil
}

func unpackClasses(rows []classRow) []classroom.Class {
	classes := make([]classroom.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, unpackClass(row))
	}
	return classes
}

func (repo classroomRepository) AddMembership(ctx context.Context, mbr classroom.Membership) (classroom.Membership, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO class_member (class_id, student_id, joined_at)
		VALUES ($1, $2, $3)`,
		mbr.ClassID, mbr.StudentID, mbr.JoinedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return classroom.Membership{}, classroom.ErrAlreadyMember
		}
		return classroom.Membership{}, errors.Wrap(err, "inserting membership")
	}
	return mbr, nil
}

func (repo classroomRepository) IsMember(ctx context.Context, classID, studentID string) (bool, error) {
	var member bool
	err := repo.db.GetContext(ctx, &member,
		`SELECT EXISTS (SELECT 1 FROM class_member WHERE class_id = $1 AND student_id = $2)`,
		classID, studentID,
	)
	if err != nil {
		return false, errors.Wrap(err, "checking class membership")
	}
	return member, nil
}

func (repo classroomRepository) QueryClassStudents(ctx context.Context, classID string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT u.* FROM "user" u
		JOIN class_member m ON m.student_id = u.id
		WHERE m.class_id = $1
		ORDER BY u.name`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	students := make([]user.User, 0, len(rows))
	for _, row := range rows {
		students = append(students, unpackUser(row))
	}
	return students, nil
}

func (repo classroomRepository) CreateTask(ctx context.Context, tsk classroom.Task) (classroom.Task, error) {
	tsk.ID = uuid.New().String()
	var due null.Time
	if tsk.DueDate != nil {
		due = null.TimeFrom(tsk.DueDate.UTC())
	}
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO task (id, class_id, title, description, status, owner_id, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tsk.ID, tsk.ClassID, tsk.Title, tsk.Description, tsk.Status, tsk.OwnerID, due, tsk.CreatedAt.UTC(),
	)
	if err != nil {
		return classroom.Task{}, errors.Wrap(err, "inserting task")
	}
	return tsk, nil
}

func (repo classroomRepository) GetTaskByID(ctx context.Context, id string) (classroom.Task, error) {
	var row taskRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM task WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Task{}, classroom.ErrTaskNotFound
		}
		return classroom.Task{}, errors.Wrap(err, "finding task by ID")
	}
	return unpackTask(row), nil
}

func (repo classroomRepository) QueryTasksByClass(ctx context.Context, classID string) ([]classroom.Task, error) {
	var rows []taskRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM task WHERE class_id = $1 ORDER BY created_at DESC`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks by class")
	}
	tasks := make([]classroom.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, unpackTask(row))
	}
	return tasks, nil
}

func (repo classroomRepository) UpdateTask(ctx context.Context, tsk classroom.Task) (classroom.Task, error) {
	sets := []string{}
	args := []interface{}{}
	arg := 1

	set := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, arg))
		args = append(args, val)
		arg++
	}

	if tsk.Title != "" {
		set("title", tsk.Title)
	}
	if tsk.Description != "" {
		set("description", tsk.Description)
	}
	if tsk.Status != "" {
		set("status", tsk.Status)
	}
	if tsk.DueDate != nil {
		set("due_date", tsk.DueDate.UTC())
	}
	if len(sets) == 0 {
		return repo.GetTaskByID(ctx, tsk.ID)
	}

	query := fmt.Sprintf("UPDATE task SET %s WHERE id = $%d RETURNING *", strings.Join(sets, ", "), arg)
	args = append(args, tsk.ID)

	var row taskRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return classroom.Task{}, classroom.ErrTaskNotFound
		}
		return classroom.Task{}, errors.Wrap(err, "updating task")
	}
	return unpackTask(row), nil
}

func (repo classroomRepository) DeleteTask(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}

// UpsertSubmission overwrites any existing submission for the same
// (task_id, student_id) pair; no history is kept.
func (repo classroomRepository) UpsertSubmission(ctx context.Context, sub classroom.Submission) (classroom.Submission, error) {
	id := uuid.New().String()
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		INSERT INTO task_submission (id, task_id, student_id, text_answer, file_ref, image_ref, link_url, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (task_id, student_id) DO UPDATE SET
			text_answer = EXCLUDED.text_answer,
			file_ref = EXCLUDED.file_ref,
			image_ref = EXCLUDED.image_ref,
			link_url = EXCLUDED.link_url,
			submitted_at = EXCLUDED.submitted_at
		RETURNING id, task_id, student_id, '' AS student_name, text_answer, file_ref, image_ref, link_url, submitted_at, teacher_comment`,
		id, sub.TaskID, sub.StudentID, sub.TextAnswer, sub.FileRef, sub.ImageRef, sub.LinkURL, sub.SubmittedAt.UTC(),
	)
	if err != nil {
		return classroom.Submission{}, errors.Wrap(err, "upserting submission")
	}
	out := unpackSubmission(row)
	out.StudentName = sub.StudentName
	return out, nil
}

func (repo classroomRepository) GetSubmission(ctx context.Context, taskID, studentID string) (classroom.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		selectSubmission+" WHERE s.task_id = $1 AND s.student_id = $2", taskID, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Submission{}, classroom.ErrSubmissionNotFound
		}
		return classroom.Submission{}, errors.Wrap(err, "finding submission")
	}
	return unpackSubmission(row), nil
}

func (repo classroomRepository) QuerySubmissionsByTask(ctx context.Context, taskID string) ([]classroom.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows,
		selectSubmission+" WHERE s.task_id = $1 ORDER BY s.submitted_at DESC", taskID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions by task")
	}
	subs := make([]classroom.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, unpackSubmission(row))
	}
	return subs, nil
}

func (repo classroomRepository) UpdateSubmissionComment(ctx context.Context, id, comment string) (classroom.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE task_submission SET teacher_comment = $1 WHERE id = $2
		RETURNING id, task_id, student_id, '' AS student_name, text_answer, file_ref, image_ref, link_url, submitted_at, teacher_comment`,
		comment, id,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return classroom.Submission{}, classroom.ErrSubmissionNotFound
		}
		return classroom.Submission{}, errors.Wrap(err, "updating submission comment")
	}
	return unpackSubmission(row), nil
}
