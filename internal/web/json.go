package web

import "github.com/labstack/echo/v4"

// APIError is the JSON body of every non-2xx API response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func apiError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, &APIError{Code: code, Message: message})
}

// SessionStarted is the response to a successful session start.
type SessionStarted struct {
	SessionID       string `json:"session_id"`
	DurationSeconds int    `json:"duration_seconds"`
}
