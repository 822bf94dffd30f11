package api

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"votify/internal/domain/poll"
	"votify/internal/domain/recovery"
	"votify/internal/domain/stats"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
)

type testUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*user.User
	byMail map[string]int64
	nextID int64
}

func newTestUserRepo() *testUserRepo {
	return &testUserRepo{
		users:  make(map[int64]*user.User),
		byMail: make(map[string]int64),
		nextID: 1,
	}
}

func (r *testUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byMail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	u.ID = r.nextID
	r.nextID++
	u.CreatedAt = time.Now()
	copyUser := *u
	r.users[u.ID] = &copyUser
	r.byMail[u.Email] = u.ID
	return nil
}

func (r *testUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byMail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *r.users[id]
	return &copyUser, nil
}

func (r *testUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyUser := *u
	return &copyUser, nil
}

func (r *testUserRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]user.User, 0, len(r.users))
	for _, u := range r.users {
		res = append(res, *u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r *testUserRepo) update(id int64, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(u)
	return nil
}

func (r *testUserRepo) UpdateRole(ctx context.Context, id int64, role string) error {
	return r.update(id, func(u *user.User) { u.Role = role })
}

func (r *testUserRepo) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	r.mu.Lock()
	u, ok := r.users[id]
	if ok {
		delete(r.byMail, u.Email)
		r.byMail[email] = id
	}
	r.mu.Unlock()
	return r.update(id, func(u *user.User) { u.Name, u.Email = name, email })
}

func (r *testUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.update(id, func(u *user.User) { u.PasswordHash = hash })
}

func (r *testUserRepo) Deactivate(ctx context.Context, id int64) error {
	return r.update(id, func(u *user.User) { u.IsActive = false })
}

type testPollRepo struct {
	mu           sync.Mutex
	polls        map[int64]*poll.Poll
	opts         map[int64][]poll.Option
	votes        map[int64]map[int64]int64 // poll -> user -> option
	nextPollID   int64
	nextOptionID int64
}

func newTestPollRepo() *testPollRepo {
	return &testPollRepo{
		polls:        make(map[int64]*poll.Poll),
		opts:         make(map[int64][]poll.Option),
		votes:        make(map[int64]map[int64]int64),
		nextPollID:   1,
		nextOptionID: 1,
	}
}

func (r *testPollRepo) Create(ctx context.Context, p *poll.Poll, options []poll.Option) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	p.ID = r.nextPollID
	r.nextPollID++
	p.CreatedAt = now
	p.UpdatedAt = now
	copyPoll := *p
	r.polls[p.ID] = &copyPoll

	cloned := make([]poll.Option, len(options))
	for i := range options {
		options[i].ID = r.nextOptionID
		r.nextOptionID++
		options[i].PollID = p.ID
		options[i].CreatedAt = now
		cloned[i] = options[i]
	}
	r.opts[p.ID] = cloned
	return p.ID, nil
}

func (r *testPollRepo) GetByID(ctx context.Context, id int64) (*poll.Poll, []poll.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return nil, nil, sql.ErrNoRows
	}
	copyPoll := *p
	copiedOpts := make([]poll.Option, len(r.opts[id]))
	copy(copiedOpts, r.opts[id])
	return &copyPoll, copiedOpts, nil
}

func (r *testPollRepo) List(ctx context.Context, f poll.ListFilter) ([]poll.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []poll.Poll{}
	for _, p := range r.polls {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Voted != nil {
			_, voted := r.votes[p.ID][f.UserID]
			if voted != *f.Voted {
				continue
			}
		}
		res = append(res, *p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *testPollRepo) Update(ctx context.Context, id int64, in poll.UpdateInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return sql.ErrNoRows
	}
	if in.Question != nil {
		p.Question = *in.Question
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Description != nil {
		p.Description = in.Description
	}
	if in.EndsAt != nil {
		p.EndsAt = in.EndsAt
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *testPollRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (r *testPollRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.polls, id)
	delete(r.opts, id)
	delete(r.votes, id)
	return nil
}

func (r *testPollRepo) FinishExpired(ctx context.Context, now time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, p := range r.polls {
		if p.Status == poll.StatusActive && p.EndsAt != nil && !p.EndsAt.After(now) {
			p.Status = poll.StatusFinished
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// testVoteRepo shares state with the poll repo the way the tables do.
type testVoteRepo struct {
	polls *testPollRepo
}

func (r *testVoteRepo) Create(ctx context.Context, v *vote.Vote) (int64, error) {
	r.polls.mu.Lock()
	defer r.polls.mu.Unlock()

	p, ok := r.polls.polls[v.PollID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if p.Status != poll.StatusActive {
		return 0, vote.ErrPollNotActive
	}
	belongs := false
	for _, o := range r.polls.opts[v.PollID] {
		if o.ID == v.OptionID {
			belongs = true
		}
	}
	if !belongs {
		return 0, vote.ErrOptionNotInPoll
	}
	if r.polls.votes[v.PollID] == nil {
		r.polls.votes[v.PollID] = make(map[int64]int64)
	}
	if _, exists := r.polls.votes[v.PollID][v.UserID]; exists {
		return 0, vote.ErrAlreadyVoted
	}
	r.polls.votes[v.PollID][v.UserID] = v.OptionID
	p.Voters++
	return p.Voters, nil
}

func (r *testVoteRepo) CountByPoll(ctx context.Context, pollID int64) ([]vote.Count, int64, error) {
	r.polls.mu.Lock()
	defer r.polls.mu.Unlock()
	tally := make(map[int64]int64)
	var total int64
	for _, optID := range r.polls.votes[pollID] {
		tally[optID]++
		total++
	}
	var res []vote.Count
	for _, o := range r.polls.opts[pollID] {
		res = append(res, vote.Count{OptionID: o.ID, Text: o.Text, Votes: tally[o.ID]})
	}
	return res, total, nil
}

func (r *testVoteRepo) GetPollStatus(ctx context.Context, pollID int64) (string, error) {
	r.polls.mu.Lock()
	defer r.polls.mu.Unlock()
	p, ok := r.polls.polls[pollID]
	if !ok {
		return "", sql.ErrNoRows
	}
	return p.Status, nil
}

type testStatsRepo struct {
	polls *testPollRepo
}

func (r *testStatsRepo) Totals(ctx context.Context) (stats.Totals, error) {
	r.polls.mu.Lock()
	defer r.polls.mu.Unlock()
	var t stats.Totals
	voters := make(map[int64]bool)
	for id, p := range r.polls.polls {
		t.Polls++
		if p.Status == poll.StatusActive {
			t.Active++
		} else {
			t.Finished++
		}
		for uid := range r.polls.votes[id] {
			voters[uid] = true
		}
	}
	t.Voters = int64(len(voters))
	return t, nil
}

func (r *testStatsRepo) Monthly(ctx context.Context, since time.Time) ([]stats.MonthPoint, error) {
	return nil, nil
}

func (r *testStatsRepo) StatusCounts(ctx context.Context) ([]stats.StatusCount, error) {
	t, _ := r.Totals(ctx)
	return []stats.StatusCount{{Status: poll.StatusActive, Count: t.Active}}, nil
}

func (r *testStatsRepo) VoterCounts(ctx context.Context) ([]int64, error) {
	r.polls.mu.Lock()
	defer r.polls.mu.Unlock()
	var res []int64
	for _, p := range r.polls.polls {
		res = append(res, p.Voters)
	}
	return res, nil
}

type testRecoveryRepo struct {
	mu   sync.Mutex
	reqs map[string]recovery.Request
}

func (r *testRecoveryRepo) Save(ctx context.Context, req *recovery.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reqs == nil {
		r.reqs = make(map[string]recovery.Request)
	}
	r.reqs[req.Token] = *req
	return nil
}

func (r *testRecoveryRepo) GetByToken(ctx context.Context, token string) (*recovery.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.reqs[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (r *testRecoveryRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reqs, token)
	return nil
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendResetCode(ctx context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

func (m *captureMailer) last(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}
