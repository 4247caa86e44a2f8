package controllers

import (
	"net/http"

	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/internal/gameserver"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

func AdminServerStatus(control gameserver.Control, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if control == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "server control unavailable"))
			return
		}

		status, err := control.Status(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func AdminServerStart(control gameserver.Control, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if control == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "server control unavailable"))
			return
		}

		if err := control.Start(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "starting"})
	}
}

func AdminServerStop(control gameserver.Control, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if control == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "server control unavailable"))
			return
		}

		if err := control.Stop(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "stopping"})
	}
}
