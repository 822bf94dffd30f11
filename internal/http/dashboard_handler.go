package api

import (
	"net/http"
)

// @Summary     Dashboard totals
// @Tags        dashboard
// @Security    BearerAuth
// @Produce     json
// @Success     200  {object}  stats.Totals
// @Failure     403  {object}  apperr.AppError  "forbidden"
// @Router      /api/v1/dashboard/totals [get]
func (h *Handler) handleDashboardTotals(w http.ResponseWriter, r *http.Request) {
	t, err := h.statsSvc.Totals(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// @Summary     Polls and votes per month
// @Tags        dashboard
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   stats.MonthPoint
// @Router      /api/v1/dashboard/monthly [get]
func (h *Handler) handleDashboardMonthly(w http.ResponseWriter, r *http.Request) {
	m, err := h.statsSvc.Monthly(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// @Summary     Polls per status
// @Tags        dashboard
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   stats.StatusCount
// @Router      /api/v1/dashboard/status [get]
func (h *Handler) handleDashboardStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.statsSvc.StatusBreakdown(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Polls bucketed by voter count
// @Tags        dashboard
// @Security    BearerAuth
// @Produce     json
// @Success     200  {array}   stats.Bucket
// @Router      /api/v1/dashboard/engagement [get]
func (h *Handler) handleDashboardEngagement(w http.ResponseWriter, r *http.Request) {
	b, err := h.statsSvc.Engagement(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
