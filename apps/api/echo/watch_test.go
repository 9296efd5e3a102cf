package echoapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DailyDoseOfWezs/Schedulink/core/classroom"
	"github.com/DailyDoseOfWezs/Schedulink/core/user"
	"github.com/DailyDoseOfWezs/Schedulink/core/watch"
)

func Test_watchApi_notifications(t *testing.T) {
	env := setupServer(t)
	teacher := env.createUser(t, "Mr. Banza", "banza@test.cd", user.RoleTeacher, "LordOfTheRings")
	student := env.createUser(t, "Awe", "awe@test.cd", user.RoleStudent, "LordOfTheRings")
	teacherToken := env.getToken(t, teacher)
	studentToken := env.getToken(t, student)

	var cls classroom.Class
	rec := env.request(t, http.MethodPost, "/v1/classes", teacherToken, classroom.NewClass{Name: "Physics 101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &cls)

	rec = env.request(t, http.MethodPost, "/v1/classes/join", studentToken, classroom.JoinClass{Code: cls.JoinCode})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tsk classroom.Task
	rec = env.request(t, http.MethodPost, "/v1/tasks", teacherToken, classroom.NewTask{ClassID: cls.ID, Title: "Lab report"})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &tsk)

	notificationsPath := "/v1/classes/" + cls.ID + "/notifications"

	// nothing to report yet, for either portal
	for _, token := range []string{teacherToken, studentToken} {
		rec = env.request(t, http.MethodGet, notificationsPath, token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var notes []watch.Notification
		decode(t, rec, &notes)
		assert.Empty(t, notes)
	}

	// student submits and marks the task done
	var sub classroom.Submission
	rec = env.request(t, http.MethodPut, "/v1/tasks/"+tsk.ID+"/submission", studentToken,
		classroom.SubmitAnswer{TextAnswer: "done!", StatusOverride: classroom.StatusDone})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &sub)

	// the teacher hears about the completion, exactly once
	rec = env.request(t, http.MethodGet, notificationsPath, teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []watch.Notification
	decode(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "Task completed!", notes[0].Title)
	assert.Contains(t, notes[0].Message, student.Name)

	rec = env.request(t, http.MethodGet, notificationsPath, teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notes)
	assert.Empty(t, notes)

	// teacher comments; the student hears about it, exactly once
	rec = env.request(t, http.MethodPost, "/v1/tasks/"+tsk.ID+"/submissions/"+sub.ID+"/comment", teacherToken,
		classroom.CommentSubmission{Comment: "Good work!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.request(t, http.MethodGet, notificationsPath, studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "New feedback!", notes[0].Title)
	assert.Contains(t, notes[0].Message, "Lab report")

	rec = env.request(t, http.MethodGet, notificationsPath, studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &notes)
	assert.Empty(t, notes)
}
