package dto

import "time"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LockedErrorResponse cuerpo de error para cuentas bloqueadas.
type LockedErrorResponse struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	LockedUntil time.Time `json:"locked_until"`
}
