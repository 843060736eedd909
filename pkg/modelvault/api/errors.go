package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/avatarkit/modelvault/pkg/modelvault"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error        string `json:"error"`
	PartialState string `json:"partial_state,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}

// renderServiceError maps workflow errors to HTTP status codes. Partial
// failures map to 502 because the request crossed a backend boundary and
// left observable state behind.
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *modelvault.PartialError
	if errors.As(err, &partial) {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, ErrorResponse{
			Error:        partial.Error(),
			PartialState: string(partial.State),
		})
		return
	}

	switch {
	case errors.Is(err, modelvault.ErrInvalidFormat):
		renderError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, modelvault.ErrUnknownAsset),
		errors.Is(err, modelvault.ErrAssetNotFound),
		errors.Is(err, modelvault.ErrBlobNotFound),
		errors.Is(err, modelvault.ErrProfileNotFound),
		errors.Is(err, modelvault.ErrActiveModelDangling):
		renderError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, modelvault.ErrAssetExists),
		errors.Is(err, modelvault.ErrBlobExists):
		renderError(w, r, http.StatusConflict, err.Error())
	default:
		renderError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
