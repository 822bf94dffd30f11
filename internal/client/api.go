package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"votify/internal/domain/poll"
	"votify/internal/domain/stats"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
)

type AuthResult struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

type PollDetail struct {
	Poll    poll.Poll     `json:"poll"`
	Options []poll.Option `json:"options"`
}

type Results struct {
	PollID     int64         `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Options    []vote.Result `json:"options"`
}

// PollQuery filters GET /polls. A nil Voted lists regardless of the caller's votes.
type PollQuery struct {
	Voted    *bool
	Category string
	Status   string
}

type PollInput struct {
	Question    string     `json:"question"`
	Category    string     `json:"category"`
	Description *string    `json:"description,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Options     []string   `json:"options"`
}

type PollPatch struct {
	Question    *string    `json:"question,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

type tokenBody struct {
	Token string `json:"token"`
}

func pollPath(id int64, suffix string) string {
	return "/api/v1/polls/" + strconv.FormatInt(id, 10) + suffix
}

// Register creates the account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	var res AuthResult
	in := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, in, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

// Login stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, in, &res); err != nil {
		return nil, err
	}
	c.SetToken(res.Token)
	return &res, nil
}

func (c *Client) RequestReset(ctx context.Context, email string) (string, error) {
	var res tokenBody
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/password/request", nil, map[string]string{"email": email}, &res)
	return res.Token, err
}

func (c *Client) VerifyReset(ctx context.Context, token, code string) (string, error) {
	var res tokenBody
	in := map[string]string{"token": token, "code": code}
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/password/verify", nil, in, &res)
	return res.Token, err
}

func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	in := map[string]string{"token": token, "password": password}
	return c.do(ctx, http.MethodPost, "/api/v1/auth/password/reset", nil, in, nil)
}

func (c *Client) ResendReset(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/password/resend", nil, tokenBody{Token: token}, nil)
}

func (c *Client) Me(ctx context.Context) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name, email string) (*user.User, error) {
	var u user.User
	in := map[string]string{"name": name, "email": email}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/me", nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Polls(ctx context.Context, q PollQuery) ([]poll.Poll, error) {
	v := url.Values{}
	if q.Voted != nil {
		v.Set("voted", strconv.FormatBool(*q.Voted))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	var polls []poll.Poll
	if err := c.do(ctx, http.MethodGet, "/api/v1/polls", v, nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (c *Client) Poll(ctx context.Context, id int64) (*PollDetail, error) {
	var d PollDetail
	if err := c.do(ctx, http.MethodGet, pollPath(id, ""), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) Options(ctx context.Context, id int64) ([]poll.Option, error) {
	var opts []poll.Option
	if err := c.do(ctx, http.MethodGet, pollPath(id, "/options"), nil, nil, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Vote returns the poll's voter total after the vote.
func (c *Client) Vote(ctx context.Context, pollID, optionID int64) (int64, error) {
	var res struct {
		Total int64 `json:"total"`
	}
	in := map[string]int64{"option_id": optionID}
	if err := c.do(ctx, http.MethodPost, pollPath(pollID, "/vote"), nil, in, &res); err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (c *Client) Results(ctx context.Context, pollID int64) (*Results, error) {
	var r Results
	if err := c.do(ctx, http.MethodGet, pollPath(pollID, "/results"), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) AdminPolls(ctx context.Context, status string) ([]poll.Poll, error) {
	v := url.Values{}
	if status != "" {
		v.Set("status", status)
	}
	var polls []poll.Poll
	if err := c.do(ctx, http.MethodGet, "/api/v1/admin/polls", v, nil, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (c *Client) CreatePoll(ctx context.Context, in PollInput) (int64, error) {
	var res struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/polls", nil, in, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) UpdatePoll(ctx context.Context, id int64, patch PollPatch) error {
	return c.do(ctx, http.MethodPatch, pollPath(id, ""), nil, patch, nil)
}

func (c *Client) FinishPoll(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, pollPath(id, "/status"), nil, map[string]string{"status": poll.StatusFinished}, nil)
}

func (c *Client) DeletePoll(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, pollPath(id, ""), nil, nil, nil)
}

func (c *Client) DashboardTotals(ctx context.Context) (stats.Totals, error) {
	var t stats.Totals
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/totals", nil, nil, &t)
	return t, err
}

func (c *Client) DashboardMonthly(ctx context.Context) ([]stats.MonthPoint, error) {
	var m []stats.MonthPoint
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/monthly", nil, nil, &m)
	return m, err
}

func (c *Client) DashboardStatus(ctx context.Context) ([]stats.StatusCount, error) {
	var s []stats.StatusCount
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/status", nil, nil, &s)
	return s, err
}

func (c *Client) DashboardEngagement(ctx context.Context) ([]stats.Bucket, error) {
	var b []stats.Bucket
	err := c.do(ctx, http.MethodGet, "/api/v1/dashboard/engagement", nil, nil, &b)
	return b, err
}

func (c *Client) Users(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) SetRole(ctx context.Context, id int64, role string) error {
	path := "/api/v1/users/" + strconv.FormatInt(id, 10) + "/role"
	return c.do(ctx, http.MethodPatch, path, nil, map[string]string{"role": role}, nil)
}

func (c *Client) Deactivate(ctx context.Context, id int64) error {
	path := "/api/v1/users/" + strconv.FormatInt(id, 10) + "/deactivate"
	return c.do(ctx, http.MethodPatch, path, nil, nil, nil)
}
