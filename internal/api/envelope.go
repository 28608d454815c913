// Package api описывает JSON-контракт сервиса: конверты ответов и DTO заказов.
// Один и тот же контракт используется HTTP и gRPC транспортами.
package api

import "net/http"

// Статусы в поле status конверта.
const (
	StatusSuccess             = "SUCCESS"
	StatusCreated             = "CREATED"
	StatusBadRequest          = "BAD_REQUEST"
	StatusNotFound            = "NOT_FOUND"
	StatusInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Response: стандартный конверт ответа.
type Response struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// PaginationInfo: метаданные страницы.
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int64 `json:"totalPages"`
}

// PaginatedResponse: конверт для постраничных списков.
type PaginatedResponse struct {
	Code     int            `json:"code"`
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Data     any            `json:"data"`
	Paginate PaginationInfo `json:"paginate"`
}

// ValidationErrorResponse: конверт ошибки валидации: поле -> сообщения.
type ValidationErrorResponse struct {
	Code    int                 `json:"code"`
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// MsgValidationFailed: сообщение конверта ошибки валидации.
const MsgValidationFailed = "Validation failed"

func Success(message string, data any) Response {
	return Response{Code: http.StatusOK, Status: StatusSuccess, Message: message, Data: data}
}

func Created(message string, data any) Response {
	return Response{Code: http.StatusCreated, Status: StatusCreated, Message: message, Data: data}
}

func BadRequest(message string) Response {
	return Response{Code: http.StatusBadRequest, Status: StatusBadRequest, Message: message}
}

func NotFound(message string) Response {
	return Response{Code: http.StatusNotFound, Status: StatusNotFound, Message: message}
}

func InternalServerError(message string) Response {
	return Response{Code: http.StatusInternalServerError, Status: StatusInternalServerError, Message: message}
}

// Paginated собирает конверт из уже сконвертированных элементов страницы.
func Paginated(message string, data any, info PaginationInfo) PaginatedResponse {
	return PaginatedResponse{
		Code:     http.StatusOK,
		Status:   StatusSuccess,
		Message:  message,
		Data:     data,
		Paginate: info,
	}
}

// ValidationFailed собирает конверт ошибки валидации. errors не бывает nil в JSON.
func ValidationFailed(errors map[string][]string) ValidationErrorResponse {
	if errors == nil {
		errors = map[string][]string{}
	}
	return ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Status:  StatusBadRequest,
		Message: MsgValidationFailed,
		Errors:  errors,
	}
}
