package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/services"
)

// AdminHandler обслуживает /api/admin. Scope администратора кладёт в контекст
// middleware.RequireAdmin.
type AdminHandler struct {
	teamService      services.AdminTeamService
	paymentService   services.PaymentService
	dashboardService services.DashboardService
	contactService   services.ContactService
	exportService    services.ExportService
}

func NewAdminHandler(
	ts services.AdminTeamService,
	ps services.PaymentService,
	ds services.DashboardService,
	cs services.ContactService,
	es services.ExportService,
) *AdminHandler {
	return &AdminHandler{
		teamService:      ts,
		paymentService:   ps,
		dashboardService: ds,
		contactService:   cs,
		exportService:    es,
	}
}

func (h *AdminHandler) scope(w http.ResponseWriter, r *http.Request) (models.AdminScope, bool) {
	scope, ok := currentScope(r)
	if !ok {
		forbiddenResponse(w, r, "admin access required")
		return "", false
	}
	return scope, true
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	stats, err := h.dashboardService.GetStats(r.Context(), scope)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats, nil)
}

func (h *AdminHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	event, err := eventParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	query := services.TeamQuery{
		EventID:    event,
		Search:     q.Get("search"),
		Department: q.Get("department"),
		Page:       toInt(q.Get("page"), 1),
		Limit:      toInt(q.Get("limit"), services.DefaultPageLimit),
	}
	if raw := q.Get("verified"); raw != "" {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("verified must be true or false"))
			return
		}
		query.Verified = &verified
	}

	res, err := h.teamService.ListTeams(r.Context(), scope, query)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, nil)
}

func (h *AdminHandler) ToggleTeamVerification(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	teamID, err := parseID(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.ToggleTeamVerification(r.Context(), scope, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	state := "unverified"
	if team.Verified {
		state = "verified"
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"id":        team.ID,
		"team_name": team.TeamName,
		"verified":  team.Verified,
		"message":   fmt.Sprintf("Team %s successfully", state),
	}, nil)
}

func (h *AdminHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	teamID, err := parseID(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.DeleteTeam(r.Context(), scope, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"message": fmt.Sprintf("Team '%s' and associated records deleted successfully", team.TeamName),
	}, nil)
}

func (h *AdminHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	teamID, err := parseID(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	payment, err := h.paymentService.Verify(r.Context(), scope, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment, nil)
}

func (h *AdminHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	teamID, err := parseID(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	payment, err := h.paymentService.Reject(r.Context(), scope, teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment, nil)
}

func (h *AdminHandler) Departments(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	res, err := h.dashboardService.Departments(r.Context(), scope)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, nil)
}

func (h *AdminHandler) RevenueChart(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	event, err := eventParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	res, err := h.dashboardService.RevenueChart(r.Context(), scope, event)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, nil)
}

func (h *AdminHandler) YearStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	event, err := eventParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	res, err := h.dashboardService.YearStats(r.Context(), scope, event)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, nil)
}

func (h *AdminHandler) EventStats(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	res, err := h.dashboardService.EventStats(r.Context(), scope)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, nil)
}

func (h *AdminHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	unreadOnly := false
	if raw := r.URL.Query().Get("unread_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequestResponse(w, r, errors.New("unread_only must be true or false"))
			return
		}
		unreadOnly = v
	}

	contacts, err := h.contactService.List(r.Context(), unreadOnly)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts, nil)
}

func (h *AdminHandler) MarkContactRead(w http.ResponseWriter, r *http.Request) {
	contactID, err := parseID(r, "contactID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.contactService.MarkRead(r.Context(), contactID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"message": "Marked as read"}, nil)
}

func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	event, err := eventParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, err := h.exportService.TeamsCSV(r.Context(), scope, event)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeAttachment(w, r, file)
}

func (h *AdminHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	file, err := h.exportService.AllEventsZIP(r.Context(), scope)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeAttachment(w, r, file)
}

func writeAttachment(w http.ResponseWriter, r *http.Request, file *services.ExportFile) {
	name := strings.ReplaceAll(file.Name, `"`, "")
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	// Заголовки уже отправлены, остаётся только залогировать.
	if _, err := w.Write(file.Body); err != nil {
		slog.WarnContext(r.Context(), "export write failed", slog.String("file", name), slog.Any("error", err))
	}
}
