package controllers

import (
	"net/http"

	"github.com/pwvale/panel-backend/api/middleware"
	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/internal/characters"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

// MyCharacters lists the characters on the caller's own account.
func MyCharacters(svc characters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "character service unavailable"))
			return
		}

		list, err := svc.ListByAccount(r.Context(), middleware.AccountIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
