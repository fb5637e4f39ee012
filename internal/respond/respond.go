package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody — единый формат тела ошибки HTTP API.
type ErrorBody struct {
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// JSON пишет v как JSON с заданным статусом.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error пишет тело ошибки с кодом и сообщением.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{
		Error:   code,
		Message: message,
	})
}

// ErrorWithDetails пишет тело ошибки с построчным списком замечаний
// (валидация черновика возвращает несколько нарушений разом).
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, details []string) {
	JSON(w, status, ErrorBody{
		Error:   code,
		Message: message,
		Details: details,
	})
}

// ErrorWithID пишет тело ошибки, дополненное идентификатором запроса.
func ErrorWithID(w http.ResponseWriter, status int, code, message, reqID string) {
	JSON(w, status, ErrorBody{
		Error:     code,
		Message:   message,
		RequestID: reqID,
	})
}

// NoContent пишет 204 без тела.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
