package res

import (
	"encoding/json"
	"net/http"

	"github.com/knowtix/billing-service/pkg/logger"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JsonResponse writes data as JSON with the given status.
func JsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// JsonErrorResponse writes errResponse and logs cause, which never reaches the client.
func JsonErrorResponse(w http.ResponseWriter, errResponse ErrorResponse, status int, cause error, log *logger.Logger) {
	JsonResponse(w, errResponse, status)
	if status >= http.StatusInternalServerError {
		log.Errorw("request failed", "status", status, "response", errResponse.Error, "error", cause)
		return
	}
	log.Warnw("request rejected", "status", status, "response", errResponse.Error, "error", cause)
}
