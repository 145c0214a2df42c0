package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/tournament-arena/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrTournamentNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: u-9", services.ErrAccountNotFound), http.StatusNotFound},
		{services.ErrAlreadyDecided, http.StatusConflict},
		{services.ErrAlreadyFinalized, http.StatusConflict},
		{services.ErrUserEmailConflict, http.StatusConflict},
		{services.ErrTransactionConflict, http.StatusConflict},
		{services.ErrInsufficientFunds, http.StatusBadRequest},
		{services.ErrDuplicateWinner, http.StatusBadRequest},
		{fmt.Errorf("%w: u-1", services.ErrWinnerNotRegistered), http.StatusBadRequest},
		{services.ErrTournamentInvalidStatusTransition, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrForbiddenOperation, http.StatusForbidden},
		{services.ErrAccountBlocked, http.StatusForbidden},
		{services.ErrNotTeamMember, http.StatusForbidden},
		{services.ErrUploadsDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
		})
	}
}

func TestMapJoinRejectionCarriesReason(t *testing.T) {
	f := func(reason services.JoinRejectReason) error { return &services.JoinRejectedError{Reason: reason} }

	for _, reason := range []services.JoinRejectReason{
		services.JoinClosed, services.JoinFull, services.JoinAlreadyJoined, services.JoinInsufficientFunds,
	} {
		rec := httptest.NewRecorder()
		mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil), f(reason))
		assert.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, string(reason), body["reason"])
	}
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"cup"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"unknown field", `{"title":"cup"}`, "unknown key"},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
		{"bad type", `{"name":5}`, `incorrect JSON type for field "name"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := readJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "cup", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
