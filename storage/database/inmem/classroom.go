package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

type classroomRepository struct {
	db *DB
}

var _ classroom.Repository = (*classroomRepository)(nil)

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func membershipKey(classID, studentID string) string { return classID + "/" + studentID }
func submissionKey(taskID, studentID string) string  { return taskID + "/" + studentID }

func (repo *classroomRepository) CreateClass(_ context.Context, cls classroom.Class) (classroom.Class, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.classes {
		if strings.EqualFold(existing.JoinCode, cls.JoinCode) {
			return classroom.Class{}, classroom.ErrCodeExists
		}
	}

	cls.ID = uuid.New().String()
	cls.JoinCode = strings.ToUpper(cls.JoinCode)
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClassByID(_ context.Context, id string) (classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return classroom.Class{}, classroom.ErrClassNotFound
}

func (repo *classroomRepository) GetClassByCode(_ context.Context, code string) (classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, cls := range repo.db.classes {
		if strings.EqualFold(cls.JoinCode, code) {
			return *cls, nil
		}
	}
	return classroom.Class{}, classroom.ErrClassNotFound
}

func (repo *classroomRepository) QueryClassesByOwner(_ context.Context, teacherID string) ([]classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var classes []classroom.Class
	for _, cls := range repo.db.classes {
		if cls.OwnerID == teacherID {
			classes = append(classes, *cls)
		}
	}
	sortClassesNewestFirst(classes)
	return classes, nil
}

func (repo *classroomRepository) QueryClassesByStudent(_ context.Context, studentID string) ([]classroom.Class, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var classes []classroom.Class
	for _, mbr := range repo.db.memberships {
		if mbr.StudentID != studentID {
			continue
		}
		if cls, ok := repo.db.classes[mbr.ClassID]; ok {
			classes = append(classes, *cls)
		}
	}
	sortClassesNewestFirst(classes)
	return classes, nil
}

func sortClassesNewestFirst(classes []classroom.Class) {
	sort.Slice(classes, func(i, j int) bool { return classes[i].CreatedAt.After(classes[j].CreatedAt) })
}

func (repo *classroomRepository) AddMembership(_ context.Context, mbr classroom.Membership) (classroom.Membership, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := membershipKey(mbr.ClassID, mbr.StudentID)
	if _, ok := repo.db.memberships[key]; ok {
		return classroom.Membership{}, classroom.ErrAlreadyMember
	}
	repo.db.memberships[key] = &mbr
	return mbr, nil
}

func (repo *classroomRepository) IsMember(_ context.Context, classID, studentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	_, ok := repo.db.memberships[membershipKey(classID, studentID)]
	return ok, nil
}

func (repo *classroomRepository) QueryClassStudents(_ context.Context, classID string) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var students []user.User
	for _, mbr := range repo.db.memberships {
		if mbr.ClassID != classID {
			continue
		}
		if usr, ok := repo.db.users[mbr.StudentID]; ok {
			students = append(students, *usr)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (repo *classroomRepository) CreateTask(_ context.Context, tsk classroom.Task) (classroom.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tsk.ID = uuid.New().String()
	repo.db.tasks[tsk.ID] = &tsk
	return tsk, nil
}

func (repo *classroomRepository) GetTaskByID(_ context.Context, id string) (classroom.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tsk, ok := repo.db.tasks[id]; ok {
		return *tsk, nil
	}
	return classroom.Task{}, classroom.ErrTaskNotFound
}

func (repo *classroomRepository) QueryTasksByClass(_ context.Context, classID string) ([]classroom.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var tasks []classroom.Task
	for _, tsk := range repo.db.tasks {
		if tsk.ClassID == classID {
			tasks = append(tasks, *tsk)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.After(tasks[j].CreatedAt) })
	return tasks, nil
}

func (repo *classroomRepository) UpdateTask(_ context.Context, tsk classroom.Task) (classroom.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origTsk, ok := repo.db.tasks[tsk.ID]
	if !ok {
		return classroom.Task{}, classroom.ErrTaskNotFound
	}
	if tsk.Title != "" {
		origTsk.Title = tsk.Title
	}
	if tsk.Description != "" {
		origTsk.Description = tsk.Description
	}
	if tsk.Status != "" {
		origTsk.Status = tsk.Status
	}
	if tsk.DueDate != nil {
		origTsk.DueDate = tsk.DueDate
	}
	return *origTsk, nil
}

func (repo *classroomRepository) DeleteTask(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.tasks, id)
	for key, sub := range repo.db.submissions {
		if sub.TaskID == id {
			delete(repo.db.submissions, key)
		}
	}
	return nil
}

func (repo *classroomRepository) UpsertSubmission(_ context.Context, sub classroom.Submission) (classroom.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := submissionKey(sub.TaskID, sub.StudentID)
	if existing, ok := repo.db.submissions[key]; ok {
		sub.ID = existing.ID
		sub.TeacherComment = existing.TeacherComment
	} else {
		sub.ID = uuid.New().String()
	}
	repo.db.submissions[key] = &sub
	return sub, nil
}

func (repo *classroomRepository) GetSubmission(_ context.Context, taskID, studentID string) (classroom.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.submissions[submissionKey(taskID, studentID)]; ok {
		return *sub, nil
	}
	return classroom.Submission{}, classroom.ErrSubmissionNotFound
}

func (repo *classroomRepository) QuerySubmissionsByTask(_ context.Context, taskID string) ([]classroom.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var subs []classroom.Submission
	for _, sub := range repo.db.submissions {
		if sub.TaskID == taskID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *classroomRepository) UpdateSubmissionComment(_ context.Context, id, comment string) (classroom.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, sub := range repo.db.submissions {
		if sub.ID == id {
			sub.TeacherComment = comment
			return *sub, nil
		}
	}
	return classroom.Submission{}, classroom.ErrSubmissionNotFound
}
