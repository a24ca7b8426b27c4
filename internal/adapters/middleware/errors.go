package middleware

import (
	"encoding/json"
	"net/http"
)

const (
	codeInternal    = "INTERNAL_ERROR"
	codeTimeout     = "TIMEOUT"
	codeRateLimited = "RATE_LIMITED"
)

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorBody renders the handlers' failure envelope.
func errorBody(code, message string) []byte {
	env := errorEnvelope{}
	env.Error.Code = code
	env.Error.Message = message
	body, _ := json.Marshal(env)
	return body
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(errorBody(code, message))
}
