package httpx

import (
	"errors"
	"net/http"
)

// Transport failures raised outside the ledger's own error contract.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTooManyRequests = errors.New("too many requests")
)

// RespondError writes err as a problem document. Unknown errors never leak
// their message.
func RespondError(w http.ResponseWriter, err error) {
	status, title := http.StatusInternalServerError, "Internal Error"
	switch {
	case errors.Is(err, ErrNotFound):
		status, title = http.StatusNotFound, "Not Found"
	case errors.Is(err, ErrForbidden):
		status, title = http.StatusForbidden, "Forbidden"
	case errors.Is(err, ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, ErrTooManyRequests):
		status, title = http.StatusTooManyRequests, "Too Many Requests"
	default:
		Problem(w, status, title, "")
		return
	}
	Problem(w, status, title, err.Error())
}
