package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedError(t *testing.T) {
	base := InvalidState("sale %s already cancelled", "tx-1")
	wrapped := fmt.Errorf("cancel: %w", base)

	assert.Equal(t, KindInvalidState, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindInvalidState))
	assert.False(t, Is(wrapped, KindValidation))
	assert.Equal(t, KindInternal, KindOf(sql.ErrConnDone))
	assert.False(t, Is(nil, KindInternal))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindPermission:   http.StatusForbidden,
		KindInvalidState: http.StatusConflict,
		KindPayment:      http.StatusBadGateway,
		KindSettlement:   http.StatusInternalServerError,
		KindUnauthorized: http.StatusUnauthorized,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
	assert.True(t, KindSettlement.Retryable())
	assert.False(t, KindValidation.Retryable())
}

func TestSettlementUnwrap(t *testing.T) {
	err := Settlement(sql.ErrTxDone, "commit failed")
	require.ErrorIs(t, err, sql.ErrTxDone)
	assert.Contains(t, err.Error(), "settlement_error")

	withDetail := Payment(nil, "gateway rejected").WithDetail("transactionId", "tx-9")
	assert.Equal(t, "tx-9", withDetail.Details["transactionId"])
}
