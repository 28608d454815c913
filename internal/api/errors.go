package api

import (
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// MsgOrderNotFound: сообщение ответа 404.
const MsgOrderNotFound = "Order not found"

// ErrorResponse выбирает HTTP-статус и тело ответа для ошибки сервиса.
// action подставляется в сообщение "Failed to <action>: <cause>".
func ErrorResponse(err error, action string) (int, any) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		var verr domain.ValidationErrors
		errors.As(err, &verr)
		return http.StatusBadRequest, ValidationFailed(verr)
	case domain.KindNotFound:
		return http.StatusNotFound, NotFound(MsgOrderNotFound)
	default:
		return http.StatusInternalServerError, InternalServerError(FailureMessage(action, err))
	}
}

// FailureMessage формирует текст ошибки хранилища.
func FailureMessage(action string, err error) string {
	cause := err.Error()
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		cause = perr.Cause()
	}
	return "Failed to " + action + ": " + cause
}
