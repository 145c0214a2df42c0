package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-arena/models"
	"github.com/Dosada05/tournament-arena/services"
)

type WalletHandler struct {
	walletService     services.WalletService
	settlementService services.SettlementService
}

func NewWalletHandler(ws services.WalletService, ss services.SettlementService) *WalletHandler {
	return &WalletHandler{
		walletService:     ws,
		settlementService: ss,
	}
}

func coinRequestFilter(r *http.Request) (models.CoinRequestFilter, error) {
	limit, offset, err := pagination(r)
	if err != nil {
		return models.CoinRequestFilter{}, err
	}
	filter := models.CoinRequestFilter{Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := models.CoinRequestStatus(v)
		filter.Status = &status
	}
	if v := q.Get("kind"); v != "" {
		kind := models.CoinRequestKind(v)
		filter.Kind = &kind
	}
	return filter, nil
}

// CreateRequest godoc
// @Summary Заявка на пополнение или вывод монет
// @Tags wallet
// @Accept json
// @Produce json
// @Param body body services.CoinRequestInput true "kind, amount_coins, supporting_detail"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации или недостаточно средств"
// @Security BearerAuth
// @Router /me/coin-requests [post]
func (h *WalletHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var input services.CoinRequestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.walletService.CreateRequest(r.Context(), actorFromRequest(r), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"coin_request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := coinRequestFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	list, err := h.walletService.ListMine(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"coin_requests": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WalletHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter, err := coinRequestFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	list, err := h.walletService.ListAll(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"coin_requests": list}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Decide godoc
// @Summary Одобрить или отклонить заявку на монеты
// @Tags wallet
// @Accept json
// @Produce json
// @Param requestID path string true "Coin request ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Недостаточно средств для вывода"
// @Failure 404 {object} map[string]string "Заявка или аккаунт не найдены"
// @Failure 409 {object} map[string]string "Заявка уже обработана"
// @Security BearerAuth
// @Router /coin-requests/{requestID}/decision [post]
func (h *WalletHandler) Decide(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathParam(r, "requestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Decision models.CoinRequestStatus `json:"decision"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	req, err := h.settlementService.Decide(r.Context(), actorFromRequest(r), requestID, input.Decision)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"coin_request": req}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
