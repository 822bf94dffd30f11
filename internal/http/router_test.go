package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"votify/internal/domain/poll"
	"votify/internal/domain/recovery"
	"votify/internal/domain/stats"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
	"votify/internal/events"
	jwtpkg "votify/internal/platform/jwt"
)

const testPassword = "password1"

type testEnv struct {
	server *httptest.Server
	users  *testUserRepo
	polls  *testPollRepo
	userS  *user.Service
	hub    *events.Hub
	mailer *captureMailer
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	userRepo := newTestUserRepo()
	pollRepo := newTestPollRepo()
	mailer := &captureMailer{}

	userSvc := user.NewService(userRepo).WithCost(bcrypt.MinCost)
	hub := events.NewHub(nil)

	server := httptest.NewServer(NewRouter(Deps{
		Users:     userSvc,
		Polls:     poll.NewService(pollRepo),
		Votes:     vote.NewService(&testVoteRepo{polls: pollRepo}, 0),
		Stats:     stats.NewService(&testStatsRepo{polls: pollRepo}, 6),
		Recovery:  recovery.NewService(&testRecoveryRepo{}, userSvc, mailer, time.Minute),
		JWT:       jwtpkg.NewManager("secret", "test-issuer", time.Hour),
		Hub:       hub,
		VoteRate:  rate.Inf,
		VoteBurst: 100,
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: userRepo, polls: pollRepo, userS: userSvc, hub: hub, mailer: mailer}
}

func (e *testEnv) seedUser(t *testing.T, email, role string) int64 {
	t.Helper()
	u, err := e.userS.Register(context.Background(), "Test "+role, email, testPassword)
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	if role != user.RoleUser {
		if err := e.users.UpdateRole(context.Background(), u.ID, role); err != nil {
			t.Fatalf("set role: %v", err)
		}
	}
	return u.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, e.server.URL+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	var payload authResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if payload.Token == "" {
		t.Fatalf("token missing")
	}
	return payload.Token
}

func (e *testEnv) createPoll(t *testing.T, token string, req createPollRequest) int64 {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/polls", token, req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var payload createPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode create poll: %v", err)
	}
	return payload.ID
}

func (e *testEnv) vote(t *testing.T, token string, pollID, optionID int64) *http.Response {
	t.Helper()
	return e.do(t, http.MethodPost, "/api/v1/polls/"+itoa(pollID)+"/vote", token, voteRequest{OptionID: optionID})
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var payload errorBody
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return payload
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func samplePoll(question string) createPollRequest {
	return createPollRequest{Question: question, Category: "Campus", Options: []string{"yes", "no"}}
}

func TestRBACForUserRole(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	env.seedUser(t, "user@test.com", user.RoleUser)

	adminToken := env.login(t, "admin@test.com", testPassword)
	userToken := env.login(t, "user@test.com", testPassword)

	env.createPoll(t, adminToken, samplePoll("Admin poll"))

	if resp := env.do(t, http.MethodPost, "/api/v1/polls", userToken, samplePoll("User poll")); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for user create poll, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPatch, "/api/v1/users/1/role", userToken, updateRoleRequest{Role: "admin"}); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for role update, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/dashboard/totals", userToken, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for dashboard, got %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/polls", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestVoteReturnsTotalAndPublishes(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	env.seedUser(t, "user@test.com", user.RoleUser)
	adminToken := env.login(t, "admin@test.com", testPassword)
	userToken := env.login(t, "user@test.com", testPassword)

	pollID := env.createPoll(t, adminToken, samplePoll("Campus Survey"))
	opts := env.polls.opts[pollID]

	sub, cancel := env.hub.Subscribe(8)
	defer cancel()

	resp := env.vote(t, userToken, pollID, opts[0].ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 first vote, got %d", resp.StatusCode)
	}
	var vr voteResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		t.Fatalf("decode vote: %v", err)
	}
	if vr.Total != 1 {
		t.Fatalf("expected total 1, got %d", vr.Total)
	}

	select {
	case ev := <-sub:
		if ev.Type != events.VoteAdded || ev.PollID != pollID || ev.Total != 1 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("vote-added was not published")
	}

	second := env.vote(t, userToken, pollID, opts[1].ID)
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate vote, got %d", second.StatusCode)
	}
}

func TestVoteRejectedOnFinishedPoll(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	env.seedUser(t, "user@test.com", user.RoleUser)
	adminToken := env.login(t, "admin@test.com", testPassword)
	userToken := env.login(t, "user@test.com", testPassword)

	pollID := env.createPoll(t, adminToken, samplePoll("Closing soon"))
	opts := env.polls.opts[pollID]

	if resp := env.do(t, http.MethodPatch, "/api/v1/polls/"+itoa(pollID)+"/status", adminToken, updateStatusRequest{Status: "finished"}); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 finishing poll, got %d", resp.StatusCode)
	}

	resp := env.vote(t, userToken, pollID, opts[0].ID)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for finished poll vote, got %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Error != "poll_not_active" {
		t.Fatalf("expected poll_not_active, got %q", body.Error)
	}

	reopen := env.do(t, http.MethodPatch, "/api/v1/polls/"+itoa(pollID)+"/status", adminToken, updateStatusRequest{Status: "active"})
	if reopen.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 reopening finished poll, got %d", reopen.StatusCode)
	}
}

func TestOptionMustBelongToPoll(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	env.seedUser(t, "user@test.com", user.RoleUser)
	adminToken := env.login(t, "admin@test.com", testPassword)
	userToken := env.login(t, "user@test.com", testPassword)

	pollA := env.createPoll(t, adminToken, samplePoll("Poll A"))
	pollB := env.createPoll(t, adminToken, samplePoll("Poll B"))

	resp := env.vote(t, userToken, pollA, env.polls.opts[pollB][0].ID)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for option not in poll, got %d", resp.StatusCode)
	}
	body := decodeError(t, resp)
	if body.Error != "invalid_option" || body.Message == "" {
		t.Fatalf("expected structured error payload, got %+v", body)
	}
}

func TestListPollsVotedFilter(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	env.seedUser(t, "user@test.com", user.RoleUser)
	adminToken := env.login(t, "admin@test.com", testPassword)
	userToken := env.login(t, "user@test.com", testPassword)

	first := env.createPoll(t, adminToken, samplePoll("First"))
	second := env.createPoll(t, adminToken, samplePoll("Second"))
	env.vote(t, userToken, first, env.polls.opts[first][0].ID)

	list := func(query string) []poll.Poll {
		resp := env.do(t, http.MethodGet, "/api/v1/polls"+query, userToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list %s: status %d", query, resp.StatusCode)
		}
		var polls []poll.Poll
		if err := json.NewDecoder(resp.Body).Decode(&polls); err != nil {
			t.Fatalf("decode list: %v", err)
		}
		return polls
	}

	if got := list("?voted=false"); len(got) != 1 || got[0].ID != second {
		t.Fatalf("unvoted list = %+v", got)
	}
	voted := list("?voted=true")
	if len(voted) != 1 || voted[0].ID != first || voted[0].Voters != 1 {
		t.Fatalf("voted list = %+v", voted)
	}
	if got := list("?category=campus"); len(got) != 2 {
		t.Fatalf("category list = %+v", got)
	}
	if resp := env.do(t, http.MethodGet, "/api/v1/polls?voted=maybe", userToken, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad voted flag, got %d", resp.StatusCode)
	}
}

func TestPollNotFoundPatchAndDelete(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	adminToken := env.login(t, "admin@test.com", testPassword)

	q := "New question"
	if resp := env.do(t, http.MethodPatch, "/api/v1/polls/999", adminToken, updatePollRequest{Question: &q}); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 patch, got %d", resp.StatusCode)
	}
	resp := env.do(t, http.MethodDelete, "/api/v1/polls/999", adminToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 delete, got %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Error != "poll_not_found" {
		t.Fatalf("expected poll_not_found, got %q", body.Error)
	}
}

func TestRegisterValidationFields(t *testing.T) {
	env := setupServer(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", registerRequest{Name: "A", Email: "nope", Password: "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeError(t, resp)
	if body.Error != "invalid_input" || body.Fields["email"] == "" || body.Fields["password"] == "" {
		t.Fatalf("expected field errors, got %+v", body)
	}
}

func TestProfileUpdate(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "user@test.com", user.RoleUser)
	token := env.login(t, "user@test.com", testPassword)

	resp := env.do(t, http.MethodPatch, "/api/v1/me", token, updateProfileRequest{Name: "Renamed", Email: "new@test.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var u user.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Name != "Renamed" || u.Email != "new@test.com" {
		t.Fatalf("unexpected profile %+v", u)
	}
	env.login(t, "new@test.com", testPassword)
}

func TestPasswordResetFlow(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "user@test.com", user.RoleUser)

	unknown := env.do(t, http.MethodPost, "/api/v1/auth/password/request", "", resetRequest{Email: "ghost@test.com"})
	if unknown.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", unknown.StatusCode)
	}
	if body := decodeError(t, unknown); body.Error != "user_not_found" {
		t.Fatalf("expected user_not_found, got %q", body.Error)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/auth/password/request", "", resetRequest{Email: "user@test.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("request code: %d", resp.StatusCode)
	}
	var tok resetTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil || tok.Token == "" {
		t.Fatalf("decode token: %v %+v", err, tok)
	}

	code := env.mailer.last("user@test.com")
	if len(code) != 6 {
		t.Fatalf("expected a 6 digit code, got %q", code)
	}

	resetEarly := env.do(t, http.MethodPost, "/api/v1/auth/password/reset", "", resetPasswordRequest{Token: tok.Token, Password: "newpassword1"})
	if resetEarly.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 resetting before verify, got %d", resetEarly.StatusCode)
	}

	verify := env.do(t, http.MethodPost, "/api/v1/auth/password/verify", "", resetVerifyRequest{Token: tok.Token, Code: code})
	if verify.StatusCode != http.StatusOK {
		t.Fatalf("verify: %d", verify.StatusCode)
	}
	var verified resetTokenResponse
	if err := json.NewDecoder(verify.Body).Decode(&verified); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if verified.Token == tok.Token {
		t.Fatalf("expected rotated token")
	}

	reset := env.do(t, http.MethodPost, "/api/v1/auth/password/reset", "", resetPasswordRequest{Token: verified.Token, Password: "newpassword1"})
	if reset.StatusCode != http.StatusNoContent {
		t.Fatalf("reset: %d", reset.StatusCode)
	}
	env.login(t, "user@test.com", "newpassword1")
}

func TestEventsWebsocketDeliversPublished(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "user@test.com", user.RoleUser)
	token := env.login(t, "user@test.com", testPassword)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for env.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("push client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.hub.Publish(events.NewPollFinished(7))

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var ev events.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != events.PollFinished || ev.PollID != 7 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestEventsRequiresToken(t *testing.T) {
	env := setupServer(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func TestDashboardTotals(t *testing.T) {
	env := setupServer(t)
	env.seedUser(t, "admin@test.com", user.RoleAdmin)
	adminToken := env.login(t, "admin@test.com", testPassword)
	env.createPoll(t, adminToken, samplePoll("One"))
	env.createPoll(t, adminToken, samplePoll("Two"))

	resp := env.do(t, http.MethodGet, "/api/v1/dashboard/totals", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("totals: %d", resp.StatusCode)
	}
	var totals stats.Totals
	if err := json.NewDecoder(resp.Body).Decode(&totals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if totals.Polls != 2 || totals.Active != 2 {
		t.Fatalf("unexpected totals %+v", totals)
	}

	eng := env.do(t, http.MethodGet, "/api/v1/dashboard/engagement", adminToken, nil)
	var buckets []stats.Bucket
	if err := json.NewDecoder(eng.Body).Decode(&buckets); err != nil {
		t.Fatalf("decode engagement: %v", err)
	}
	if len(buckets) != 5 || buckets[0].Polls != 2 {
		t.Fatalf("unexpected buckets %+v", buckets)
	}
}
