package classroom

import (
	"math/rand"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/DailyDoseOfWezs/Schedulink/core"
)

// Task statuses. Any status may transition to any other: over-restricting
// transitions would block legitimate correction of a hastily-dragged task.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

var AllStatuses = []string{StatusTodo, StatusInProgress, StatusDone}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateJoinCode returns a random 6-character class code.
// Codes are stored uppercase and matched case-insensitively.
func GenerateJoinCode() string {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteByte(joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))])
	}
	return b.String()
}

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"join_code"`
	OwnerID   string    `json:"owner_id"`
	OwnerName string    `json:"owner_name,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Membership struct {
	ClassID   string    `json:"class_id"`
	StudentID string    `json:"student_id"`
	JoinedAt  time.Time `json:"joined_at"` // UTC
}

type Task struct {
	ID          string     `json:"id"`
	ClassID     string     `json:"class_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	OwnerID     string     `json:"owner_id"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
}

// Submission holds a student's answer to a Task. At most one exists per
// (TaskID, StudentID); a second submit overwrites the first.
type Submission struct {
	ID             string    `json:"id"`
	TaskID         string    `json:"task_id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	TextAnswer     string    `json:"text_answer,omitempty"`
	FileRef        string    `json:"file_ref,omitempty"`  // file name only, no binary storage
	ImageRef       string    `json:"image_ref,omitempty"` // file name or base64 payload
	LinkURL        string    `json:"link_url,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"` // UTC
	TeacherComment string    `json:"teacher_comment,omitempty"`
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name string `json:"name" validate:"required"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// JoinClass is a student's request to join a Class by code.
type JoinClass struct {
	Code string `json:"code" validate:"required,joincode"`
}

func (jc *JoinClass) Validate(validate *validator.Validate) error {
	jc.Code = core.CleanString(jc.Code)
	return validate.Struct(jc)
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	ClassID     string     `json:"class_id" validate:"required"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"omitempty,taskstatus"`
	DueDate     *time.Time `json:"due_date"`
}

func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Status == "" {
		nt.Status = StatusTodo
	}
	return validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing Task.
// Zero-value fields are left unchanged.
type UpdateTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"omitempty,taskstatus"`
	DueDate     *time.Time `json:"due_date"`
}

func (ut *UpdateTask) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = core.CleanString(ut.Description)
	return validate.Struct(ut)
}

// SubmitAnswer is a student's (re-)submission payload for a Task.
// StatusOverride, when set and different from the Task's current status,
// additionally advances the board as part of the same logical action.
type SubmitAnswer struct {
	TextAnswer     string `json:"text_answer"`
	FileRef        string `json:"file_ref" validate:"omitempty,max=255"`
	ImageRef       string `json:"image_ref" validate:"omitempty,max=500000"`
	LinkURL        string `json:"link_url" validate:"omitempty,url"`
	StatusOverride string `json:"status_override" validate:"omitempty,taskstatus"`
}

func (sa *SubmitAnswer) Validate(validate *validator.Validate) error {
	sa.TextAnswer = core.CleanString(sa.TextAnswer)
	sa.LinkURL = core.CleanString(sa.LinkURL)
	return validate.Struct(sa)
}

// CommentSubmission is a teacher's feedback on a Submission.
type CommentSubmission struct {
	Comment string `json:"comment" validate:"required"`
}

func (cs *CommentSubmission) Validate(validate *validator.Validate) error {
	cs.Comment = core.CleanString(cs.Comment)
	return validate.Struct(cs)
}

var (
	taskStatusTag  = "taskstatus"
	taskStatusText = "invalid task status"
)

// InitValidators registers this package's custom validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(taskStatusTag, taskStatusValidation)
	core.RegisterCustomTranslation(validate, translator, taskStatusTag, taskStatusText)
}

func taskStatusValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, status := range AllStatuses {
		if val == status {
			return true
		}
	}
	return false
}
