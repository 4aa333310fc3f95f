package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/LionTheUnknown/GLIM-sub000/services"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError writes the machine-readable error shape every failure path
// uses: {"error": "..."} plus, outside production, an optional details field.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service sentinel errors onto statuses. Anything
// unrecognized is logged and surfaced as a generic 500; internal detail is
// only echoed back when GLIM_ENV != production.
func respondServiceError(w http.ResponseWriter, err error, context string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("%s error: %v", context, err)
		body := map[string]string{"error": "internal error"}
		if os.Getenv("GLIM_ENV") != "production" {
			body["details"] = err.Error()
		}
		respondJSON(w, http.StatusInternalServerError, body)
	}
}
