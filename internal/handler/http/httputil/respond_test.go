package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivekbharatha/vbank/internal/domain"
)

func writeAndDecode(t *testing.T, err error) (int, errorBody) {
	t.Helper()
	rec := httptest.NewRecorder()
	WriteError(rec, err)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec.Code, resp.Error
}

func TestWriteError(t *testing.T) {
	t.Run("insufficient balance carries its code", func(t *testing.T) {
		status, body := writeAndDecode(t, domain.ErrInsufficientBalance)
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Equal(t, domain.ErrCodeInsufficientBalance, body.Code)
	})

	t.Run("account not found carries its code", func(t *testing.T) {
		status, body := writeAndDecode(t, domain.ErrAccountNotFound)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, domain.ErrCodeAccountNotFound, body.Code)
	})

	t.Run("validation failure has no machine code", func(t *testing.T) {
		status, body := writeAndDecode(t, fmt.Errorf("%w: amount must be positive", domain.ErrValidation))
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Empty(t, body.Code)
	})

	t.Run("unexpected error has no machine code", func(t *testing.T) {
		status, body := writeAndDecode(t, fmt.Errorf("connection refused"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Empty(t, body.Code)
		assert.Equal(t, "internal server error", body.Message)
	})
}
