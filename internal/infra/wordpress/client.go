// Package wordpress provisions LearnDash student accounts over the WordPress
// REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/errs"
)

var Error = errs.Class("wordpress")

type Client struct {
	http    *http.Client
	apiURL  string
	user    string
	pass    string
	groupID string
}

func NewClient(apiURL, user, pass, studentGroupID string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		apiURL:  strings.TrimRight(apiURL, "/"),
		user:    user,
		pass:    pass,
		groupID: studentGroupID,
	}
}

// CreateStudentUser creates the WordPress user and adds it to the student
// group, returning the new user id.
func (c *Client) CreateStudentUser(ctx context.Context, username, email, password string) (string, error) {
	var user struct {
		ID int64 `json:"id"`
	}
	err := c.post(ctx, "/wp/v2/users/", map[string]any{
		"username": username,
		"password": password,
		"email":    email,
	}, &user)
	if err != nil {
		return "", err
	}
	id := strconv.FormatInt(user.ID, 10)

	groupID, err := strconv.ParseInt(c.groupID, 10, 64)
	if err != nil {
		return "", Error.New("invalid student group id %q", c.groupID)
	}
	err = c.post(ctx, fmt.Sprintf("/ldlms/v2/users/%s/groups", id), map[string]any{
		"group_ids": []int64{groupID},
	}, nil)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) (err error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Error.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(raw))
	if err != nil {
		return Error.Wrap(err)
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, resp.Body.Close()) }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Error.New("POST %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Error.New("decode %s: %v", path, err)
	}
	return nil
}
