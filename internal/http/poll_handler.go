package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"votify/internal/domain/poll"
	"votify/internal/events"
	"votify/internal/platform/apperr"
)

type createPollRequest struct {
	Question    string   `json:"question"`
	Category    string   `json:"category"`
	Description *string  `json:"description"`
	EndsAt      *string  `json:"ends_at"`
	Options     []string `json:"options"`
}

type updatePollRequest struct {
	Question    *string `json:"question"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	EndsAt      *string `json:"ends_at"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type pollDetailResponse struct {
	Poll    *poll.Poll    `json:"poll"`
	Options []poll.Option `json:"options"`
}

type createPollResponse struct {
	ID int64 `json:"id"`
}

// @Summary     Create poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createPollRequest  true  "Poll definition"
// @Success     201      {object}  createPollResponse
// @Failure     400      {object}  apperr.AppError  "invalid input"
// @Failure     403      {object}  apperr.AppError  "forbidden"
// @Router      /api/v1/polls [post]
func (h *Handler) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	endsAt, err := parseTimePtr(req.EndsAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "ends_at must be RFC3339", err))
		return
	}

	p := &poll.Poll{
		Question:    req.Question,
		Category:    req.Category,
		Description: req.Description,
		EndsAt:      endsAt,
		CreatorID:   userIDFromCtx(r),
	}

	opts := make([]poll.Option, 0, len(req.Options))
	for _, text := range req.Options {
		opts = append(opts, poll.Option{Text: text})
	}

	id, err := h.pollSvc.Create(r.Context(), p, opts)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publishPollsChanged()
	writeJSON(w, http.StatusCreated, createPollResponse{ID: id})
}

// @Summary     List polls
// @Description voted=false lists polls the caller can still vote on (active unless status is given).
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       voted     query     bool    false  "Filter by whether the caller voted"
// @Param       category  query     string  false  "Category"
// @Param       status    query     string  false  "active or finished"
// @Success     200       {array}   poll.Poll
// @Failure     400       {object}  apperr.AppError  "invalid filter"
// @Router      /api/v1/polls [get]
func (h *Handler) handleListPolls(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := poll.ListFilter{
		UserID:   userIDFromCtx(r),
		Category: q.Get("category"),
		Status:   q.Get("status"),
	}
	if v := q.Get("voted"); v != "" {
		voted, err := strconv.ParseBool(v)
		if err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "voted must be true or false", err))
			return
		}
		f.Voted = &voted
		if !voted && f.Status == "" {
			f.Status = poll.StatusActive
		}
	}

	h.listPolls(w, r, f)
}

// @Summary     List all polls for management
// @Tags        admin
// @Security    BearerAuth
// @Produce     json
// @Param       status  query     string  false  "active or finished"
// @Success     200     {array}   poll.Poll
// @Failure     403     {object}  apperr.AppError  "forbidden"
// @Router      /api/v1/admin/polls [get]
func (h *Handler) handleAdminListPolls(w http.ResponseWriter, r *http.Request) {
	h.listPolls(w, r, poll.ListFilter{Status: r.URL.Query().Get("status")})
}

func (h *Handler) listPolls(w http.ResponseWriter, r *http.Request, f poll.ListFilter) {
	polls, err := h.pollSvc.List(r.Context(), f)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, polls)
}

// @Summary     Get poll
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {object}  pollDetailResponse
// @Failure     404  {object}  apperr.AppError  "not found"
// @Router      /api/v1/polls/{id} [get]
func (h *Handler) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	p, opts, err := h.pollSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollDetailResponse{Poll: p, Options: opts})
}

// @Summary     Poll options
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Poll ID"
// @Success     200  {array}   poll.Option
// @Failure     404  {object}  apperr.AppError  "not found"
// @Router      /api/v1/polls/{id}/options [get]
func (h *Handler) handlePollOptions(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	_, opts, err := h.pollSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	if opts == nil {
		opts = []poll.Option{}
	}
	writeJSON(w, http.StatusOK, opts)
}

// @Summary     Update poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64              true  "Poll ID"
// @Param       request  body  updatePollRequest  true  "Fields to change"
// @Success     204
// @Failure     400  {object}  apperr.AppError  "invalid input"
// @Failure     404  {object}  apperr.AppError  "not found"
// @Router      /api/v1/polls/{id} [patch]
func (h *Handler) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updatePollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	endsAt, err := parseTimePtr(req.EndsAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "ends_at must be RFC3339", err))
		return
	}

	in := poll.UpdateInput{
		Question:    req.Question,
		Category:    req.Category,
		Description: req.Description,
		EndsAt:      endsAt,
	}
	if err := h.pollSvc.Update(r.Context(), id, in); err != nil {
		errorResponse(w, err)
		return
	}

	h.publishPollsChanged()
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Finish poll
// @Tags        polls
// @Security    BearerAuth
// @Accept      json
// @Param       id       path  int64                true  "Poll ID"
// @Param       request  body  updateStatusRequest  true  "New status"
// @Success     204
// @Failure     400  {object}  apperr.AppError  "invalid status"
// @Failure     409  {object}  apperr.AppError  "already finished"
// @Router      /api/v1/polls/{id}/status [patch]
func (h *Handler) handleUpdatePollStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.pollSvc.UpdateStatus(r.Context(), id, req.Status); err != nil {
		errorResponse(w, err)
		return
	}

	if req.Status == poll.StatusFinished {
		h.publish(events.NewPollFinished(id))
	}
	h.publishPollsChanged()
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Delete poll
// @Tags        polls
// @Security    BearerAuth
// @Param       id   path  int64  true  "Poll ID"
// @Success     204
// @Failure     404  {object}  apperr.AppError  "not found"
// @Router      /api/v1/polls/{id} [delete]
func (h *Handler) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	if err := h.pollSvc.Delete(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}

	h.publishPollsChanged()
	w.WriteHeader(http.StatusNoContent)
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
