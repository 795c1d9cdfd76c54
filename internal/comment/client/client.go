// Package client talks to the replytree HTTP API on behalf of one user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/MyNameIsWhaaat/replytree/internal/comment/model"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

type Client struct {
	base *url.URL
	http *http.Client
	user model.Author
}

func New(baseURL string, timeout time.Duration, user model.Author) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", baseURL)
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}, user: user}, nil
}

// User is the identity sent with every request.
func (c *Client) User() model.Author {
	return c.user
}

func (c *Client) FetchThread(ctx context.Context, postID string) ([]model.Comment, error) {
	var roots []model.Comment
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &roots)
	return roots, err
}

func (c *Client) CreateRoot(ctx context.Context, postID, content string) (model.Comment, error) {
	var out model.Comment
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", map[string]string{"content": content}, &out)
	return out, err
}

func (c *Client) Reply(ctx context.Context, parentID, content string) (model.Comment, error) {
	var out model.Comment
	err := c.do(ctx, http.MethodPost, commentPath(parentID, "replies"), map[string]string{"content": content}, &out)
	return out, err
}

// Delete removes the comment with all of its replies and returns how many
// comments the server dropped.
func (c *Client) Delete(ctx context.Context, id string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, commentPath(id, ""), nil, &out)
	return out.Deleted, err
}

func (c *Client) Like(ctx context.Context, id string) ([]string, error) {
	return c.likes(ctx, http.MethodPost, id)
}

func (c *Client) Unlike(ctx context.Context, id string) ([]string, error) {
	return c.likes(ctx, http.MethodDelete, id)
}

func (c *Client) Report(ctx context.Context, id, reason string) (model.Report, error) {
	var out model.Report
	err := c.do(ctx, http.MethodPost, commentPath(id, "reports"), map[string]string{"reason": reason}, &out)
	return out, err
}

func (c *Client) likes(ctx context.Context, method, id string) ([]string, error) {
	var out struct {
		Likes []string `json:"likes"`
	}
	if err := c.do(ctx, method, commentPath(id, "likes"), nil, &out); err != nil {
		return nil, err
	}
	if out.Likes == nil {
		out.Likes = []string{}
	}
	return out.Likes, nil
}

func commentPath(id, sub string) string {
	p := "/comments/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.user.ID != "" {
		req.Header.Set("X-User-ID", c.user.ID)
		req.Header.Set("X-User-Name", c.user.Name)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(res)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

func statusError(res *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err := json.Unmarshal(data, &body); err != nil {
		body.Error = strings.TrimSpace(string(data))
	}
	return &StatusError{Code: res.StatusCode, Message: body.Error}
}
