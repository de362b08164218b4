package common

import "net/http"

// Response is the JSON envelope every endpoint answers with. Failures carry a
// machine-readable Code next to the public message; Data is null for them.
type Response struct {
	Status  int         `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data"`
}

func Success(data interface{}, message string) Response {
	if message == "" {
		message = "success"
	}
	return Response{Status: http.StatusOK, Success: true, Message: message, Data: data}
}

func Created(data interface{}, message string) Response {
	r := Success(data, message)
	r.Status = http.StatusCreated
	return r
}

// Failure builds an error body. A status outside 4xx/5xx is reported as 500.
func Failure(status int, code, message string) Response {
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return Response{Status: status, Message: message, Code: code}
}
