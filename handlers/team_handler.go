package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-arena/services"
)

type TeamHandler struct {
	teamService   services.TeamService
	inviteService services.InviteService
}

func NewTeamHandler(ts services.TeamService, is services.InviteService) *TeamHandler {
	return &TeamHandler{
		teamService:   ts,
		inviteService: is,
	}
}

func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListMine(r.Context(), actorFromRequest(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Create godoc
// @Summary Создать команду
// @Tags teams
// @Description Создатель становится владельцем и первым участником.
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Имя команды занято"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	team, err := h.teamService.Create(r.Context(), actorFromRequest(r), input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Invite(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Username string `json:"username"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Username == "" {
		badRequestResponse(w, r, errors.New("username is required"))
		return
	}

	inv, err := h.inviteService.Invite(r.Context(), actorFromRequest(r), teamID, input.Username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"invitation": inv}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.teamService.Leave(r.Context(), actorFromRequest(r), teamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	file, contentType, err := readImage(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	team, err := h.teamService.UploadLogo(r.Context(), actorFromRequest(r), teamID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
