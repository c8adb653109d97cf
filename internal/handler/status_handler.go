package handler

import (
	"errors"
	"net/http"

	"presence/internal/pkg/errs"
	"presence/internal/pkg/logx"
	"presence/internal/pkg/resp"
)

// HandleHealth reports that the process is serving HTTP.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logx.Debug("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "Presence Relay",
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleStatus returns the relay's live users, connection count and dataset snapshot.
func HandleStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := deps.Hub.Status(r.Context())
		if err != nil {
			var customErr *errs.CustomError
			if !errors.As(err, &customErr) {
				logx.Error(err, "Failed to read relay status")
				customErr = errs.NewError(errs.ErrUnknown)
			}
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, status)
	}
}
