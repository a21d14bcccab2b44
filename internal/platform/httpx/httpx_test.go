package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	AccountNumber string `json:"account_number" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	Kind          string `json:"kind" validate:"oneof=a b"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := Validate(sampleInput{Email: "nope", Kind: "c"})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "is required", verr.Fields["account_number"])
	require.Equal(t, "must be a valid email", verr.Fields["email"])
	require.Equal(t, "must be one of: a b", verr.Fields["kind"])

	require.NoError(t, Validate(sampleInput{AccountNumber: "A1", Kind: "a"}))
}

func TestStatusForWrappedSentinels(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("customer 3: %w", ErrNotFound):   http.StatusNotFound,
		fmt.Errorf("dup: %w", ErrConflict):          http.StatusConflict,
		Invalid("amount", "must be positive"):       http.StatusUnprocessableEntity,
		fmt.Errorf("meter: %w", ErrVerification):    http.StatusBadRequest,
		ErrForbidden:                                http.StatusForbidden,
		ErrUnauthorized:                             http.StatusUnauthorized,
		errors.New("pq: relation does not exist"):   http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "10.0.0.5")

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.False(t, env.Success)
	require.Equal(t, "internal server error", env.Message)
}

func TestRespondErrorCarriesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, Invalid("amount", "must be positive"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "must be positive", env.Errors["amount"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var in sampleInput
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"account_number":"A","bogus":1}`))
	require.ErrorIs(t, DecodeJSON(req, &in), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.ErrorIs(t, DecodeJSON(req, &in), ErrValidation)
}
