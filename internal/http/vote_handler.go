package api

import (
	"encoding/json"
	"net/http"

	"votify/internal/domain/vote"
	"votify/internal/events"
	"votify/internal/platform/apperr"
	"votify/internal/worker"
)

type voteRequest struct {
	OptionID int64 `json:"option_id"`
}

type voteResponse struct {
	PollID int64 `json:"poll_id"`
	Total  int64 `json:"total"`
}

type pollResultsResponse struct {
	PollID     int64         `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Options    []vote.Result `json:"options"`
}

// @Summary     Vote for an option
// @Tags        votes
// @Security    BearerAuth
// @Accept      json
// @Param       id       path      int64        true  "Poll ID"
// @Param       request  body      voteRequest  true  "Vote payload"
// @Produce     json
// @Success     200      {object}  voteResponse
// @Failure     400      {object}  apperr.AppError  "invalid body or poll not active"
// @Failure     401      {object}  apperr.AppError  "unauthorized"
// @Failure     404      {object}  apperr.AppError  "not found"
// @Failure     409      {object}  apperr.AppError  "already voted"
// @Failure     429      {object}  apperr.AppError  "rate limited"
// @Failure     500      {object}  apperr.AppError  "server error"
// @Router      /api/v1/polls/{id}/vote [post]
func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "option_id is required", nil))
		return
	}

	userID := userIDFromCtx(r)

	total, err := h.voteSvc.Vote(r.Context(), pollID, req.OptionID, userID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	ev := worker.VoteEvent{PollID: pollID, OptionID: req.OptionID, UserID: userID, Total: total}
	select {
	case h.voteCh <- ev:
	default:
		// worker is backed up; notify inline so clients still see the new total
		slogLogger.Warn("vote queue full, publishing inline", "poll_id", pollID)
		h.publish(events.NewVoteAdded(pollID, total))
		h.publish(events.NewDashboardChanged())
	}

	writeJSON(w, http.StatusOK, voteResponse{PollID: pollID, Total: total})
}

// @Summary     Poll results
// @Tags        polls
// @Security    BearerAuth
// @Produce     json
// @Param       id   path     int64  true  "Poll ID"
// @Success     200  {object} pollResultsResponse
// @Failure     400  {object}  apperr.AppError  "invalid poll id"
// @Failure     401  {object}  apperr.AppError  "unauthorized"
// @Failure     404  {object}  apperr.AppError  "not found"
// @Failure     500  {object}  apperr.AppError  "server error"
// @Router      /api/v1/polls/{id}/results [get]
func (h *Handler) handlePollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid poll id", err))
		return
	}

	res, total, err := h.voteSvc.Results(r.Context(), pollID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pollResultsResponse{
		PollID:     pollID,
		TotalVotes: total,
		Options:    res,
	})
}
