package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/services"
)

type AdminHandler struct {
	userService services.UserService
}

func NewAdminHandler(us services.UserService) *AdminHandler {
	return &AdminHandler{userService: us}
}

// ListUsers godoc
// @Summary Список пользователей (админ)
// @Tags admin
// @Produce json
// @Param search query string false "Поиск по username или email"
// @Param role query string false "player, staff или admin"
// @Param status query string false "active или blocked"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := models.UserFilter{Search: q.Get("search"), Limit: limit, Offset: offset}
	if v := q.Get("role"); v != "" {
		role := models.UserRole(v)
		filter.Role = &role
	}
	if v := q.Get("status"); v != "" {
		status := models.AccountStatus(v)
		filter.Status = &status
	}

	users, err := h.userService.List(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"users": users}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := pathParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Status models.AccountStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.userService.SetStatus(r.Context(), actorFromRequest(r), userID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
