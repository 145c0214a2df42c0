package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/tournament-arena/services"
)

type UserHandler struct {
	userService       services.UserService
	tournamentService services.TournamentService
}

func NewUserHandler(us services.UserService, ts services.TournamentService) *UserHandler {
	return &UserHandler{
		userService:       us,
		tournamentService: ts,
	}
}

// Me godoc
// @Summary Профиль текущего пользователя
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetSelf(r.Context(), actorFromRequest(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.userService.Rename(r.Context(), actorFromRequest(r), input.Username)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyTournaments godoc
// @Summary Турниры, в которые вступил пользователь
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /me/tournaments [get]
func (h *UserHandler) MyTournaments(w http.ResponseWriter, r *http.Request) {
	joined, err := h.tournamentService.ListJoined(r.Context(), actorFromRequest(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": joined}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) MyWins(w http.ResponseWriter, r *http.Request) {
	won, err := h.tournamentService.ListWon(r.Context(), actorFromRequest(r))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"wins": won}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
