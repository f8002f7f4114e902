package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/gjb2048/gradereviews/apps/api/echo"
	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/services/email"
	"github.com/gjb2048/gradereviews/tests"
)

func Test_reviewApi_errors(t *testing.T) {
	app := setup(t)

	unauthorized := marchallObj(t, httpErr{Error: "user not authenticated"})
	denied := marchallObj(t, httpErr{Error: gradereview.ErrPermissionDenied.Error()})

	tests := []httpTest{
		{
			name:     "no viewer",
			method:   http.MethodGet,
			path:     reviewsPath(testutil.AssignContextID, testutil.SubmissionID),
			wantCode: http.StatusUnauthorized,
			wantData: unauthorized,
		},
		{
			name:     "viewer cannot see the submission",
			method:   http.MethodGet,
			path:     reviewsPath(testutil.AssignContextID, testutil.SubmissionID),
			viewer:   testutil.ClassmateID,
			wantCode: http.StatusForbidden,
			wantData: denied,
		},
		{
			name:     "unknown submission",
			method:   http.MethodGet,
			path:     reviewsPath(testutil.AssignContextID, 99),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: gradereview.ErrInvalidItemID.Error()}),
		},
		{
			name:     "submission of another assignment",
			method:   http.MethodGet,
			path:     reviewsPath(testutil.BlindAssignContextID, testutil.SubmissionID),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: gradereview.ErrInvalidContext.Error()}),
		},
		{
			name:     "invalid area",
			method:   http.MethodGet,
			path:     reviewsPath(testutil.AssignContextID, testutil.SubmissionID, "?area=submission_comments"),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: gradereview.ErrInvalidCommentArea.Error()}),
		},
		{
			name:     "invalid context id",
			method:   http.MethodGet,
			path:     "/v1/contexts/abc/submissions/1/reviews",
			viewer:   testutil.TeacherID,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"contextid": "invalid value"}`),
		},
		{
			name:     "zero context id",
			method:   http.MethodGet,
			path:     reviewsPath(0, testutil.SubmissionID),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "post without permission",
			method:   http.MethodPost,
			path:     reviewsPath(testutil.AssignContextID, testutil.SubmissionID),
			body:     []byte(`{"content": "sneaky"}`),
			viewer:   testutil.ClassmateID,
			wantCode: http.StatusForbidden,
			wantData: denied,
		},
		{
			name:     "delete unknown review",
			method:   http.MethodDelete,
			path:     reviewsPath(testutil.AssignContextID, testutil.SubmissionID, "/42"),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: gradereview.ErrCommentNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newViewerRequest(tt.method, tt.path, tt.viewer, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reviewApi_list(t *testing.T) {
	app := setup(t)
	older := testutil.AddReview(t, app.db, testutil.AssignContextID, testutil.SubmissionID, testutil.TeacherID, "needs work")
	newer := testutil.AddReview(t, app.db, testutil.AssignContextID, testutil.SubmissionID, testutil.StudentID, "why?")
	testutil.AddReview(t, app.db, testutil.BlindAssignContextID, testutil.BlindSubmissionID, testutil.TeacherID, "elsewhere")

	t.Run("student", func(t *testing.T) {
		req, rec := newViewerRequest(http.MethodGet, reviewsPath(testutil.AssignContextID, testutil.SubmissionID), testutil.StudentID)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		comments := decodeComments(t, rec)
		require.Len(t, comments, 2)
		assert.Equal(t, []int{newer.ID, older.ID}, []int{comments[0].ID, comments[1].ID})
		assert.True(t, comments[0].Delete, "own review")
		assert.False(t, comments[1].Delete, "teacher's review")
		assert.Equal(t, "Tea Cher", comments[1].FullName)
	})

	t.Run("teacher", func(t *testing.T) {
		req, rec := newViewerRequest(http.MethodGet, reviewsPath(testutil.AssignContextID, testutil.SubmissionID), testutil.TeacherID)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		for _, cmt := range decodeComments(t, rec) {
			assert.True(t, cmt.Delete, "review %d", cmt.ID)
		}
	})

	t.Run("no reviews", func(t *testing.T) {
		app := setup(t)
		req, rec := newViewerRequest(http.MethodGet, reviewsPath(testutil.AssignContextID, testutil.SubmissionID), testutil.StudentID)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, rec)
	})
}

func Test_reviewApi_blindMarking(t *testing.T) {
	app := setup(t)
	byTeacher := testutil.AddReview(t, app.db, testutil.BlindAssignContextID, testutil.BlindSubmissionID, testutil.TeacherID, "see me")
	byStudent := testutil.AddReview(t, app.db, testutil.BlindAssignContextID, testutil.BlindSubmissionID, testutil.StudentID, "ok")
	path := reviewsPath(testutil.BlindAssignContextID, testutil.BlindSubmissionID)

	list := func(viewer int) map[int]gradereview.Comment {
		req, rec := newViewerRequest(http.MethodGet, path, viewer)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		byID := make(map[int]gradereview.Comment)
		for _, cmt := range decodeComments(t, rec) {
			byID[cmt.ID] = cmt
		}
		return byID
	}

	// the marker may neither see blind details nor knows the submission author
	marker := list(testutil.MarkerID)
	for _, cmt := range marker {
		assert.True(t, strings.HasPrefix(cmt.FullName, "Participant "), "got %q", cmt.FullName)
		assert.Equal(t, "/theme/image.php/boost/core/1/u/f2", cmt.Avatar.String)
		assert.False(t, cmt.ProfileURL.Valid)
	}
	assert.NotEqual(t, marker[byTeacher.ID].FullName, marker[byStudent.ID].FullName)

	// blind details show both the participant number and the real name
	teacher := list(testutil.TeacherID)
	assert.Equal(t, "Tea Cher", teacher[byTeacher.ID].FullName)
	assert.Regexp(t, `^Participant \d+ \(Stu Dent\)$`, teacher[byStudent.ID].FullName)

	// the author of the submission knows who wrote what
	student := list(testutil.StudentID)
	assert.Equal(t, "Tea Cher", student[byTeacher.ID].FullName)
	assert.Equal(t, "Stu Dent", student[byStudent.ID].FullName)
}

func Test_reviewApi_permissions(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{
			name:     "teacher",
			viewer:   testutil.TeacherID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, gradereview.Permissions{Post: true, View: true}),
		},
		{
			name:     "classmate",
			viewer:   testutil.ClassmateID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, gradereview.Permissions{Post: false, View: false}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := reviewsPath(testutil.AssignContextID, testutil.SubmissionID, "/permissions")
			req, rec := newViewerRequest(http.MethodGet, path, tt.viewer)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reviewApi_create(t *testing.T) {
	app := setup(t)
	path := reviewsPath(testutil.AssignContextID, testutil.SubmissionID)

	t.Run("invalid", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "blank content",
				body:     []byte(`{"content": "   "}`),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"content": "this field is required"}`),
			},
			{
				name:     "invalid format",
				body:     []byte(`{"content": "ok", "format": 9}`),
				wantCode: http.StatusBadRequest,
			},
			{
				name:     "too long",
				body:     marchallObj(t, gradereview.NewReview{Content: strings.Repeat("a", 51)}),
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"content": "grade review is longer than 50 characters"}`),
			},
			{
				name:     "malformed body",
				body:     []byte(`{"content":`),
				wantCode: http.StatusBadRequest,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newViewerRequest(http.MethodPost, path, testutil.TeacherID, tt.body)
				app.ServeHTTP(rec, req)
				checkCodeAndData(t, tt, rec)
			})
		}
	})

	t.Run("teacher", func(t *testing.T) {
		sent := len(emailsvc.SentMessages)

		req, rec := newViewerRequest(http.MethodPost, path, testutil.TeacherID, []byte(`{"content": " Well done "}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cmt gradereview.Comment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmt))
		assert.NotZero(t, cmt.ID)
		assert.Equal(t, "Well done", cmt.Content)
		assert.Equal(t, testutil.TeacherID, cmt.UserID)
		assert.Equal(t, gradereview.AreaGradeReviews, cmt.Area)
		assert.Equal(t, "Tea Cher", cmt.FullName)
		assert.True(t, cmt.Delete)

		// the author was notified
		require.Len(t, emailsvc.SentMessages, sent+1)
		msg := emailsvc.SentMessages[sent]
		assert.Equal(t, "stu@lms.test", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "Well done")
		assert.Contains(t, msg.TextContent, "https://lms.test/mod/assign/view.php?id=11")
	})

	t.Run("upgrade area", func(t *testing.T) {
		upgradePath := path + "?area=" + gradereview.AreaUpgrade
		req, rec := newViewerRequest(http.MethodPost, upgradePath, testutil.TeacherID, []byte(`{"content": "migrated"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var cmt gradereview.Comment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmt))
		assert.Equal(t, testutil.StudentID, cmt.UserID)
		assert.Equal(t, gradereview.AreaGradeReviews, cmt.Area)
	})
}

func Test_reviewApi_display(t *testing.T) {
	app := setup(t)
	path := reviewsPath(testutil.BlindAssignContextID, testutil.BlindSubmissionID, "/display")
	body := marchallObj(t, echoapi.DisplayRequest{Comments: []gradereview.Comment{
		{ID: 7, UserID: testutil.TeacherID, FullName: "Tea Cher", Delete: true},
	}})

	req, rec := newViewerRequest(http.MethodPost, path, testutil.MarkerID, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	comments := decodeComments(t, rec)
	require.Len(t, comments, 1)
	assert.True(t, strings.HasPrefix(comments[0].FullName, "Participant "))
	assert.False(t, comments[0].Delete)
}

func Test_reviewApi_displayDefaultsDelete(t *testing.T) {
	app := setup(t)
	path := reviewsPath(testutil.BlindAssignContextID, testutil.BlindSubmissionID, "/display")
	body := []byte(`{"comments": [{"id": 8, "userid": 400, "fullname": "Mark Er"}, {"id": 9, "userid": 400, "delete": false}]}`)

	req, rec := newViewerRequest(http.MethodPost, path, testutil.MarkerID, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	comments := decodeComments(t, rec)
	require.Len(t, comments, 2)
	assert.True(t, comments[0].Delete, "omitted delete defaults to true")
	assert.False(t, comments[1].Delete)
}

func Test_reviewApi_destroy(t *testing.T) {
	app := setup(t)
	byTeacher := testutil.AddReview(t, app.db, testutil.AssignContextID, testutil.SubmissionID, testutil.TeacherID, "needs work")
	byStudent := testutil.AddReview(t, app.db, testutil.AssignContextID, testutil.SubmissionID, testutil.StudentID, "why?")
	elsewhere := testutil.AddReview(t, app.db, testutil.BlindAssignContextID, testutil.BlindSubmissionID, testutil.StudentID, "hm")

	path := func(id int) string {
		return reviewsPath(testutil.AssignContextID, testutil.SubmissionID, "/"+strconv.Itoa(id))
	}

	tests := []httpTest{
		{
			name:     "student cannot delete the teacher's review",
			path:     path(byTeacher.ID),
			viewer:   testutil.StudentID,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "review of another submission",
			path:     path(elsewhere.ID),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "student deletes own review",
			path:     path(byStudent.ID),
			viewer:   testutil.StudentID,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "teacher deletes any review",
			path:     path(byTeacher.ID),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "already deleted",
			path:     path(byTeacher.ID),
			viewer:   testutil.TeacherID,
			wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newViewerRequest(http.MethodDelete, tt.path, tt.viewer)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	events, err := app.reg.Gather()
	require.NoError(t, err)
	var deleted float64
	for _, mf := range events {
		if mf.GetName() == "gradereviews_events_triggered_total" {
			deleted = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), deleted)
}

func Test_server_metrics(t *testing.T) {
	app := setup(t)

	req, rec := newViewerRequest(http.MethodGet, reviewsPath(testutil.AssignContextID, testutil.SubmissionID), testutil.ClassmateID)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newViewerRequest(http.MethodGet, "/metrics", 0)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`gradereviews_http_requests_total{code="403",method="GET",route="/v1/contexts/:contextid/submissions/:itemid/reviews"} 1`)
}
