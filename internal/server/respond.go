package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/notas-reader/internal/common"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]errorBody{"error": toErrorBody(err)})
}

func toErrorBody(err error) errorBody {
	msg := err.Error()
	var ae *common.AppError
	if errors.As(err, &ae) {
		msg = ae.Message
	}
	return errorBody{Code: common.Kind(err), Message: msg, Retryable: common.IsRetryable(err)}
}

func httpStatus(err error) int {
	switch common.Kind(err) {
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeInvalidInput:
		return http.StatusBadRequest
	case common.CodeEmptyStore, common.CodeRunInProgress:
		return http.StatusConflict
	case common.CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case common.CodeConversion:
		return http.StatusUnprocessableEntity
	case common.CodeAuthentication:
		return http.StatusUnauthorized
	case common.CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case common.CodeExtractionBackend:
		if common.IsRetryable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	case common.CodeCancelled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
