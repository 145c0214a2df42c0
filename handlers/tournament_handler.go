package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TournamentHandler struct {
	tournamentService services.TournamentService
	settlementService services.SettlementService
	pointsService     services.PointsService
}

func NewTournamentHandler(ts services.TournamentService, ss services.SettlementService, ps services.PointsService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		settlementService: ss,
		pointsService:     ps,
	}
}

// List godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param status query string false "upcoming, live, completed или cancelled"
// @Param category query string false "ID категории"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments [get]
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter := models.TournamentFilter{Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.TournamentStatus(v)
		filter.Status = &status
	}
	if v := q.Get("category"); v != "" {
		filter.CategoryID = &v
	}

	list, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Турнир по ID
// @Tags tournaments
// @Description Данные комнаты возвращаются только персоналу и зарегистрированным игрокам.
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Get(r.Context(), actorFromRequest(r), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.TournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Create(r.Context(), actorFromRequest(r), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.TournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Update(r.Context(), actorFromRequest(r), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GoLive(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.GoLiveInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.GoLive(r.Context(), actorFromRequest(r), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := h.tournamentService.Cancel(r.Context(), actorFromRequest(r), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Join godoc
// @Summary Вступить в турнир
// @Tags tournaments
// @Description Списывает взнос и выдает номер слота. Тело с team_id необязательно.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body services.JoinInput false "Команда"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Аккаунт заблокирован или не член команды"
// @Failure 409 {object} map[string]string "closed, full, already_joined или insufficient_funds"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/join [post]
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.JoinInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	reg, err := h.settlementService.Join(r.Context(), actorFromRequest(r), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Finalize godoc
// @Summary Завершить турнир и выплатить призы
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param body body services.WinnersInput true "Победители"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Повторяющиеся или незарегистрированные победители"
// @Failure 409 {object} map[string]string "Турнир уже завершен"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/finalize [post]
func (h *TournamentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input services.WinnersInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	t, err := h.settlementService.Finalize(r.Context(), actorFromRequest(r), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
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

	t, err := h.tournamentService.UploadBanner(r.Context(), actorFromRequest(r), id, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Points(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	table, err := h.pointsService.Table(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"points": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdatePoints godoc
// @Summary Обновить таблицу очков
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/points [put]
func (h *TournamentHandler) UpdatePoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Entries []services.PointsInput `json:"entries"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	table, err := h.pointsService.Upsert(r.Context(), actorFromRequest(r), id, input.Entries)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"points": table}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ExportPoints(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	// буферизуем, чтобы ошибка не пришла после отправленного заголовка
	var buf bytes.Buffer
	if err := h.pointsService.Export(r.Context(), id, &buf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "points-"+id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
