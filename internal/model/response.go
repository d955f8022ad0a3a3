package model

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Envelope is the success wrapper every 2xx response uses. Clients unwrap
// Data before feature code sees it; errors are plain ErrorResponse bodies.
type Envelope struct {
	Data      any       `json:"data"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

func Wrap(data any) Envelope {
	return Envelope{Data: data, Success: true, Timestamp: time.Now().UTC()}
}
