package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseload/caseload/core"
)

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, core.NewNopLogger()).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Ana", Address: "ana@test.cd"}},
		Subject:     "Hello",
		TextContent: "hi",
	})
	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Caseload] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "ana@test.cd", m.Personalizations[0].To[0].Address)
	assert.Empty(t, m.Personalizations[0].CC)
	require.Len(t, m.Content, 1, "no empty html part")
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "noreply@localhost", m.From.Address)
}

func TestSendgridService_send(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SendgridAPIKey = "sg-key"
	svc := NewSendgridService(conf, core.NewNopLogger()).(*sendgridService)

	var sent rest.Request
	status := http.StatusAccepted
	svc.api = func(req rest.Request) (*rest.Response, error) {
		sent = req
		return &rest.Response{StatusCode: status, Body: "bad request"}, nil
	}

	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "ana@test.cd"}},
		Subject:     "Hello",
		TextContent: "hi",
		HTMLContent: "<p>hi</p>",
	}
	require.NoError(t, svc.send(msg))
	assert.Equal(t, rest.Post, sent.Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", sent.BaseURL)
	assert.Equal(t, "Bearer sg-key", sent.Headers["Authorization"])

	var body struct {
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(sent.Body, &body))
	assert.Len(t, body.Content, 2)

	status = http.StatusBadRequest
	err := svc.send(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: "Bo@test.cd"}},
		Subject: "Plain",
		BodyStr: "body",
	})

	msg, ok := LastMessageTo("bo@test.cd")
	require.True(t, ok)
	assert.Equal(t, "body", msg.TextContent)

	_, ok = LastMessageTo("nobody@test.cd")
	assert.False(t, ok)
}
