package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/caseload/caseload/apps/api/echo"
	"github.com/caseload/caseload/core/assignment"
	testutil "github.com/caseload/caseload/tests"
)

func Test_assignmentApi_query(t *testing.T) {
	app := setup(t)
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.cd", "", true, true)
	ben := testutil.CreateUser(t, usrRepo, "Ben", "ben@test.cd", "", true, true)

	late := testutil.CreateAssignment(t, asgRepo, ana.ID, "Late", "2021-03-01", assignment.StatusNotStarted)
	early := testutil.CreateAssignment(t, asgRepo, ana.ID, "Early", "2021-01-01", assignment.StatusCompleted)
	testutil.CreateAssignment(t, asgRepo, ben.ID, "Ben's", "2021-02-01", assignment.StatusInProgress)
	anaToken := getToken(t, ana)

	tests := []httpTest{
		{name: "Auth required", path: "/api/assignments", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own, by due date", path: "/api/assignments", token: anaToken, wantCode: http.StatusOK, wantData: marchallList(t, early, late)},
		{name: "userId is the caller", path: "/api/assignments?userId=" + ana.ID, token: anaToken, wantCode: http.StatusOK, wantData: marchallList(t, early, late)},
		{
			name: "userId of another user", path: "/api/assignments?userId=" + ben.ID, token: anaToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Nothing yet", path: "/api/assignments", token: getToken(t, testutil.CreateUser(t, usrRepo, "New", "new@test.cd", "", true, true)), wantCode: http.StatusOK, wantData: marchallList(t)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			}
		})
	}
}

func Test_assignmentApi_create(t *testing.T) {
	app := setup(t)
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.cd", "", true, true)
	token := getToken(t, ana)

	tests := []httpTest{
		{
			name: "required fields", body: []byte(`{"schoolSite": "Lincoln"}`), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"dueDate": "Due date is required", "name": "Name is required"}),
		},
		{
			name: "invalid status", body: []byte(`{"dueDate": "2021-05-01", "name": "Kim", "status": "Done"}`), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid status"}),
		},
		{
			name: "invalid date", body: []byte(`{"dueDate": "05/01/2021", "name": "Kim"}`), token: token, wantCode: http.StatusBadRequest,
		},
		{name: "created", body: []byte(`{"dueDate": "2021-05-01", "name": " Kim ", "assignmentType": "Triennial"}`), token: token, wantCode: http.StatusCreated},
		{
			name: "created from legacy fields", token: token, wantCode: http.StatusCreated,
			body: []byte(`{"dueDate": "2021-06-01", "name": "Lee", "assignment": "30day", "appSigned": "Yes", "dateSigned": "2021-05-20"}`),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/assignments"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	list, err := asgRepo.QueryAssignments(context.Background(), assignment.QueryFilter{CreatedBy: ana.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)

	kim := list[0]
	assert.Equal(t, "Kim", kim.Name)
	assert.Equal(t, assignment.StatusNotStarted, kim.Status)
	assert.Equal(t, assignment.TypeTriennial, kim.Type)
	assert.Equal(t, ana.ID, kim.CreatedBy)
	assert.False(t, kim.CreatedAt.IsZero())

	lee := list[1]
	assert.Equal(t, assignment.TypeThirtyDay, lee.Type)
	assert.True(t, lee.APSigned)
	assert.Equal(t, assignment.MustParseDate("2021-05-20"), lee.APDateSigned)
}

func Test_assignmentApi_update(t *testing.T) {
	app := setup(t)
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.cd", "", true, true)
	ben := testutil.CreateUser(t, usrRepo, "Ben", "ben@test.cd", "", true, true)
	a := testutil.CreateAssignment(t, asgRepo, ana.ID, "Kim", "2021-05-01", assignment.StatusNotStarted)
	token := getToken(t, ana)
	path := "/api/assignments/" + a.ID

	tests := []httpTest{
		{name: "Auth required", path: path, body: []byte(`{"status": "Completed"}`), wantCode: http.StatusUnauthorized},
		{
			name: "Other owner", path: path, body: []byte(`{"status": "Completed"}`), token: getToken(t, ben), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "Unknown id", path: "/api/assignments/lol", body: []byte(`{"status": "Completed"}`), token: token, wantCode: http.StatusNotFound},
		{
			name: "Blank name", path: path, body: []byte(`{"name": "  "}`), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "Name is required"}),
		},
		{name: "Partial update", path: path, body: []byte(`{"status": "Completed", "priority": true}`), token: token, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var got assignment.Assignment
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, a.ID, got.ID)
				assert.Equal(t, "Kim", got.Name)
				assert.Equal(t, a.DueDate, got.DueDate)
				assert.Equal(t, assignment.StatusCompleted, got.Status)
				assert.True(t, got.Priority)
			}
		})
	}
}

func Test_assignmentApi_destroy(t *testing.T) {
	app := setup(t)
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.cd", "", true, true)
	ben := testutil.CreateUser(t, usrRepo, "Ben", "ben@test.cd", "", true, true)
	a := testutil.CreateAssignment(t, asgRepo, ana.ID, "Kim", "2021-05-01", assignment.StatusNotStarted)
	path := "/api/assignments/" + a.ID

	tests := []httpTest{
		{name: "Other owner", path: path, token: getToken(t, ben), wantCode: http.StatusNotFound},
		{name: "Deleted", path: path, token: getToken(t, ana), wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.DeleteResponse{ID: a.ID, Deleted: true})},
		{name: "Already deleted", path: path, token: getToken(t, ana), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
