package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "github.com/dragoonbuster/MeatSocial/pkg/domain-errors"
)

// genericRejection is the single user-facing message for every ceremony
// rejection. The specific reason stays in logs and the audit trail so the
// endpoint does not become an oracle for probing the identity index.
const genericRejection = "verification invalid"

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates a domain error into the JSON error envelope. Only
// the code crosses the wire; messages stay server-side.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, statusOf(code), map[string]string{"error": string(code)})
}

// writeRejection collapses ceremony rejection codes into one generic
// response.
func writeRejection(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error":   "verification_rejected",
		"message": genericRejection,
	})
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput, dErrors.CodeMalformedToken:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidSignature, dErrors.CodeExpiredProof:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeDuplicateIdentity:
		return http.StatusConflict
	case dErrors.CodeInvalidNode:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// isRejection reports whether the error is one of the ceremony gate
// failures that must not be distinguishable to callers.
func isRejection(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidNode, dErrors.CodeDuplicateIdentity, dErrors.CodeConflict:
		return true
	}
	return false
}
