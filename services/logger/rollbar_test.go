package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "TEST : ", 0), core.NewTestConfig())
	logger.Enable(false)

	logger.Warn("tracker.Mutator: remote update failed",
		errors.New("503 Service Unavailable"),
		map[string]interface{}{"id": "a1"},
		user.User{ID: "u1", Email: "ana@test.cd"},
	)

	out := buf.String()
	assert.Contains(t, out, "WARN tracker.Mutator: remote update failed")
	assert.Contains(t, out, "503 Service Unavailable")
	assert.Contains(t, out, "a1")
	assert.NotContains(t, out, "ana@test.cd", "users are reported to rollbar only")
}
