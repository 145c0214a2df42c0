package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/services"
)

type InviteHandler struct {
	inviteService services.InviteService
}

func NewInviteHandler(is services.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: is}
}

func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	var status *models.InvitationStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := models.InvitationStatus(v)
		status = &s
	}
	list, err := h.inviteService.ListMine(r.Context(), actorFromRequest(r), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitations": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Respond godoc
// @Summary Принять или отклонить приглашение в команду
// @Tags teams
// @Accept json
// @Produce json
// @Param invitationID path string true "Invitation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Приглашение уже обработано"
// @Security BearerAuth
// @Router /invitations/{invitationID}/respond [post]
func (h *InviteHandler) Respond(w http.ResponseWriter, r *http.Request) {
	invitationID, err := pathParam(r, "invitationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Accept *bool `json:"accept"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Accept == nil {
		badRequestResponse(w, r, errors.New("accept is required"))
		return
	}

	inv, err := h.inviteService.Respond(r.Context(), actorFromRequest(r), invitationID, *input.Accept)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitation": inv}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
