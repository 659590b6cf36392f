package dig_container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/caseload/caseload/apps/api/echo"
	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
	testutil "github.com/caseload/caseload/tests"
)

func TestNew(t *testing.T) {
	c := New(core.NewTestConfig)

	err := c.Invoke(func(server *echoapi.Server, repo user.Repository, svc user.ServiceInterface) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Welcome to Caseload API!", rec.Body.String())

		// the service and the server share the in-memory repositories
		usr := testutil.CreateUser(t, repo, "Ana", "ana@test.cd", "", true, true)
		got, err := svc.GetByEmail(usr.Email)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		users, err := repo.QueryUsers(context.Background())
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
	require.NoError(t, err)

	err = c.Invoke(func(asgSvc assignment.ServiceInterface) {
		list, err := asgSvc.Query(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
	require.NoError(t, err)
}
