package models

// AnalysisRequest carries one upload through the pipeline. It is never stored.
type AnalysisRequest struct {
	Document       []byte
	Filename       string
	JobDescription string
	UserID         string
}

type SessionExchangeRequest struct {
	SessionID string `json:"session_id"`
}

// SessionData is the payload returned by the external OAuth session endpoint.
type SessionData struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
