package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/accountd/internal/server/validation"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type errorsEnvelope struct {
	Errors []validation.FieldError `json:"errors"`
}

// writeData sends a {"data": ...} envelope. A nil value marshals to
// {"data": null}, which is how empty reads are reported.
func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(dataEnvelope{Data: v})
}

// writeErrors sends a {"errors": [...]} envelope. The HTTP status is taken
// from the first field error.
func writeErrors(w http.ResponseWriter, errs []validation.FieldError) {
	status := http.StatusBadRequest
	if len(errs) > 0 && errs[0].Status != 0 {
		status = errs[0].Status
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorsEnvelope{Errors: errs})
}

// writeInternalError reports an unexpected collaborator or storage failure.
// The underlying error stays in the server log.
func writeInternalError(w http.ResponseWriter) {
	writeErrors(w, []validation.FieldError{{
		Title:  "Unknown error",
		Detail: "Internal server error.",
		Status: http.StatusInternalServerError,
	}})
}

func missingBodyErrors() []validation.FieldError {
	return []validation.FieldError{{
		Title:        "Parameters not valid",
		Detail:       "JSON body is missing.",
		PropertyName: "body",
		Status:       http.StatusBadRequest,
	}}
}

func missingIDErrors() []validation.FieldError {
	return []validation.FieldError{{
		Title:        "Parameters not valid",
		Detail:       "User id is missing.",
		PropertyName: "id",
		Status:       http.StatusBadRequest,
	}}
}
