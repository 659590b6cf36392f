// Package apiclient implements tracker.Remote over the assignments REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
	"github.com/caseload/caseload/tracker"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorLen    = 200
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	ownerQuery bool
}

var _ tracker.Remote = (*Client)(nil)

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request, on top of the request context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithOwnerQuery adds `?userId=` to List requests.
func WithOwnerQuery() Option {
	return func(c *Client) { c.ownerQuery = true }
}

// New returns a Client for the API rooted at baseURL, eg. "http://localhost:8000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(baseURL, "baseURL"),
	).Check(); err != nil {
		return nil, err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing base URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported base URL scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) List(ctx context.Context, sess tracker.Session) ([]assignment.Assignment, error) {
	path := "/assignments"
	if c.ownerQuery && !sess.Anonymous() {
		path += "?" + url.Values{"userId": {sess.UserID}}.Encode()
	}
	var list []assignment.Assignment
	if err := c.do(ctx, sess, "list", "", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []assignment.Assignment{}
	}
	return list, nil
}

func (c *Client) Create(ctx context.Context, sess tracker.Session, na assignment.NewAssignment) (assignment.Assignment, error) {
	var a assignment.Assignment
	err := c.do(ctx, sess, "create", "", http.MethodPost, "/assignments", na, &a)
	return a, err
}

func (c *Client) Update(ctx context.Context, sess tracker.Session, id string, ua assignment.UpdateAssignment) (assignment.Assignment, error) {
	var a assignment.Assignment
	err := c.do(ctx, sess, "update", id, http.MethodPut, "/assignments/"+url.PathEscape(id), ua, &a)
	return a, err
}

// DeleteAck is the body of a successful delete.
type DeleteAck struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (c *Client) Delete(ctx context.Context, sess tracker.Session, id string) error {
	var ack DeleteAck
	if err := c.do(ctx, sess, "delete", id, http.MethodDelete, "/assignments/"+url.PathEscape(id), nil, &ack); err != nil {
		return err
	}
	if ack.ID != "" && !ack.Deleted {
		return &tracker.NetworkError{Op: "delete", ID: id, Message: "not deleted"}
	}
	return nil
}

type (
	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	tokenResponse struct {
		Token string `json:"token"`
	}
)

// Login exchanges credentials for a bearer token and returns the session of the user.
func (c *Client) Login(ctx context.Context, email, password string) (tracker.Session, error) {
	var res tokenResponse
	if err := c.do(ctx, tracker.Session{}, "login", "", http.MethodPost, "/users/login", loginRequest{email, password}, &res); err != nil {
		return tracker.Session{}, err
	}
	usr, err := c.Me(ctx, tracker.Session{Token: res.Token})
	if err != nil {
		return tracker.Session{}, err
	}
	return tracker.Session{UserID: usr.ID, Token: res.Token}, nil
}

// Me returns the user the session token belongs to.
func (c *Client) Me(ctx context.Context, sess tracker.Session) (user.User, error) {
	var usr user.User
	err := c.do(ctx, sess, "me", "", http.MethodGet, "/users/me", nil, &usr)
	return usr, err
}

// RefreshToken returns sess with a renewed token.
func (c *Client) RefreshToken(ctx context.Context, sess tracker.Session) (tracker.Session, error) {
	var res tokenResponse
	if err := c.do(ctx, sess, "token-refresh", "", http.MethodPost, "/users/token-refresh", nil, &res); err != nil {
		return sess, err
	}
	sess.Token = res.Token
	return sess, nil
}

func (c *Client) do(ctx context.Context, sess tracker.Session, op, id, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "marshalling %s request", op)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "building %s request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &tracker.NetworkError{Op: op, ID: id, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return &tracker.NetworkError{Op: op, ID: id, StatusCode: res.StatusCode, Err: errors.Wrap(err, "reading response body")}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &tracker.NetworkError{Op: op, ID: id, StatusCode: res.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return &tracker.NetworkError{Op: op, ID: id, StatusCode: res.StatusCode, Err: errors.Wrap(err, "decoding response body")}
	}
	return nil
}

// errorMessage extracts a message from an error body: `{"error": msg}`, `{field: msg, ...}` or plain text.
func errorMessage(data []byte) string {
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err == nil {
		if msg, ok := fields["error"].(string); ok {
			return msg
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		msgs := make([]string, 0, len(keys))
		for _, k := range keys {
			msgs = append(msgs, fmt.Sprintf("%s: %v", k, fields[k]))
		}
		return strings.Join(msgs, "; ")
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen] + "..."
	}
	return msg
}
