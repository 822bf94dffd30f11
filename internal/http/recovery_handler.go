package api

import (
	"encoding/json"
	"net/http"

	"votify/internal/platform/apperr"
)

type resetRequest struct {
	Email string `json:"email"`
}

type resetVerifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type resetResendRequest struct {
	Token string `json:"token"`
}

type resetTokenResponse struct {
	Token string `json:"token"`
}

// @Summary     Request a password reset code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      resetRequest  true  "Account email"
// @Success     200      {object}  resetTokenResponse
// @Failure     400      {object}  apperr.AppError  "invalid email"
// @Failure     404      {object}  apperr.AppError  "user not found"
// @Router      /api/v1/auth/password/request [post]
func (h *Handler) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	token, err := h.resetSvc.RequestCode(r.Context(), req.Email)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resetTokenResponse{Token: token})
}

// @Summary     Verify a password reset code
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request  body      resetVerifyRequest  true  "Token and code"
// @Success     200      {object}  resetTokenResponse
// @Failure     400      {object}  apperr.AppError  "invalid token or code"
// @Failure     429      {object}  apperr.AppError  "too many attempts"
// @Router      /api/v1/auth/password/verify [post]
func (h *Handler) handleResetVerify(w http.ResponseWriter, r *http.Request) {
	var req resetVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	token, err := h.resetSvc.VerifyCode(r.Context(), req.Token, req.Code)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resetTokenResponse{Token: token})
}

// @Summary     Set a new password
// @Tags        auth
// @Accept      json
// @Param       request  body  resetPasswordRequest  true  "Token and new password"
// @Success     204
// @Failure     400  {object}  apperr.AppError  "invalid token or password"
// @Router      /api/v1/auth/password/reset [post]
func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.resetSvc.Reset(r.Context(), req.Token, req.Password); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Resend the reset code
// @Tags        auth
// @Accept      json
// @Param       request  body  resetResendRequest  true  "Continuation token"
// @Success     204
// @Failure     400  {object}  apperr.AppError  "invalid token"
// @Router      /api/v1/auth/password/resend [post]
func (h *Handler) handleResetResend(w http.ResponseWriter, r *http.Request) {
	var req resetResendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.resetSvc.Resend(r.Context(), req.Token); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
