package common

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

// RespondWithDomainError writes err with the status HTTPStatusFromError picks for it.
// Internal failures are not echoed back to the client.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	status := HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		RespondWithError(w, status, ErrInternalServer.Error())
		return
	}
	RespondWithError(w, status, err.Error())
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
