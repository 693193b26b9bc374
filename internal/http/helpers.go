package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
)

const maxAccountLen = 128

// sanitizeInput removes control characters other than tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// accountFromPath returns the {account} path value, or "" when it is unusable.
func accountFromPath(r *http.Request) string {
	account := strings.TrimSpace(r.PathValue("account"))
	if account == "" || utf8.RuneCountInString(account) > maxAccountLen || sanitizeInput(account) != account {
		return ""
	}
	return account
}

// writeStoreError maps ledger errors to responses.
func writeStoreError(w http.ResponseWriter, r *http.Request, account string, err error) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationErrorResponse(verr.Field, verr.Error()).Write(w)
	case errors.Is(err, ledger.ErrEmptyAccount):
		BadRequestError("account is required").Write(w)
	case ledger.IsRetryable(err):
		logger.ErrorContext(ctx, "Ledger storage unavailable", applog.FieldAccount, account, applog.FieldError, err)
		UnavailableResponse("ledger storage is unavailable, try again").Write(w)
	default:
		logger.ErrorContext(ctx, "Unexpected ledger error", applog.FieldAccount, account, applog.FieldError, err)
		InternalServerError("internal error").Write(w)
	}
}
