package controllers

import (
	"errors"
	"net/http"

	"github.com/lintang-b-s/olrwebtool/pkg/util"
	"go.uber.org/zap"
)

func (api *openlrAPI) logError(r *http.Request, err error) {
	api.log.Error("request failed", zap.String("method", r.Method),
		zap.String("uri", r.URL.RequestURI()), zap.Error(err))
}

func (api *openlrAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}
	if err := writeJSON(w, status, env, nil); err != nil {
		api.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *openlrAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.logError(r, err)
	api.errorResponse(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

func (api *openlrAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (api *openlrAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusNotFound, err.Error())
}

// getStatusCode writes the response that matches the code carried by err.
func (api *openlrAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	code := util.ErrorCode(err)
	switch {
	case errors.Is(code, util.ErrBadParamInput):
		api.BadRequestResponse(w, r, err)
	case errors.Is(code, util.ErrNotFound):
		api.NotFoundResponse(w, r, err)
	default:
		api.ServerErrorResponse(w, r, err)
	}
}
