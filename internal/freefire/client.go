// Package freefire wraps the upstream like API. The client classifies
// every outcome, including transport faults, into a Result so callers
// never see a raw error.
package freefire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Status classifies an upstream like call.
type Status int

const (
	StatusSuccess Status = iota
	StatusAlreadyMaxed
	StatusNotFound
	StatusAPIError
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyMaxed:
		return "already_maxed"
	case StatusNotFound:
		return "not_found"
	case StatusAPIError:
		return "api_error"
	case StatusTimeout:
		return "timeout"
	}
	return "unknown"
}

// Result is the classified outcome of a single like call. The player and
// likes fields are only meaningful when Status is StatusSuccess.
type Result struct {
	Status      Status
	PlayerName  string
	LikesBefore int
	LikesAfter  int
	LikesAdded  int
}

type likeResponse struct {
	Status      int    `json:"status"`
	Player      string `json:"player"`
	LikesBefore int    `json:"likes_before"`
	LikesAfter  int    `json:"likes_after"`
	LikesAdded  int    `json:"likes_added"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// SendLike issues one like call for uid on the given game server. The
// context bounds the call; on expiry the in-flight request is abandoned
// and StatusTimeout returned.
func (c *Client) SendLike(ctx context.Context, uid, server string) Result {
	endpoint := fmt.Sprintf("%s/like?uid=%s&server=%s",
		c.baseURL,
		url.QueryEscape(uid),
		url.QueryEscape(server),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Status: StatusAPIError}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: StatusTimeout}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return Result{Status: StatusTimeout}
		}
		return Result{Status: StatusAPIError}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Result{Status: StatusNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Status: StatusAPIError}
	}

	var body likeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Status: StatusAPIError}
	}

	if body.Status != 1 {
		return Result{Status: StatusAlreadyMaxed}
	}

	return Result{
		Status:      StatusSuccess,
		PlayerName:  body.Player,
		LikesBefore: body.LikesBefore,
		LikesAfter:  body.LikesAfter,
		LikesAdded:  body.LikesAdded,
	}
}
