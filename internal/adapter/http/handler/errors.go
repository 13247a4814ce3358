package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
)

func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}

	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(500)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// The request was well formed but its content did not pass validation,
// repeating it unchanged fails the same way.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

func internalErrorResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusInternalServerError, message)
}

// serviceErrorResponse maps err to a status code. Server side failures are
// logged and their details hidden from the client.
func serviceErrorResponse(ctx context.Context, w http.ResponseWriter, l logger.Logger, msg string, err error) {
	code := GetCode(err)
	if code >= http.StatusInternalServerError {
		l.Error(wrap.ErrorCtx(ctx, err), msg, err)
		if code == http.StatusInternalServerError {
			internalErrorResponse(w, "the server encountered a problem and could not process your request")
			return
		}
		errorResponse(w, code, err.Error())
		return
	}
	l.Debug(ctx, msg, "error", err.Error())
	errorResponse(w, code, err.Error())
}
