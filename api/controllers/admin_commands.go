package controllers

import (
	"net/http"
	"strings"

	"github.com/pwvale/panel-backend/api/middleware"
	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/api/validators"
	"github.com/pwvale/panel-backend/internal/commands"
	"github.com/pwvale/panel-backend/internal/gameserver"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
	"github.com/pwvale/panel-backend/pkg/pagination"
)

type broadcastRequest struct {
	Channel string `json:"channel" validate:"omitempty,max=32"`
	Text    string `json:"text" validate:"required,max=512"`
}

type systemMailRequest struct {
	RoleID  uint64 `json:"role_id" validate:"required,gt=0"`
	Title   string `json:"title" validate:"required,max=128"`
	Body    string `json:"body" validate:"max=1024"`
	Coins   int64  `json:"coins" validate:"gte=0"`
	ItemID  int    `json:"item_id" validate:"gte=0"`
	ItemQty int    `json:"item_qty" validate:"gte=0"`
}

func AdminBroadcast(svc commands.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "command service unavailable"))
			return
		}

		var body broadcastRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.EnqueueBroadcast(r.Context(), middleware.AccountIDFromContext(r.Context()), gameserver.BroadcastMessage{
			Channel: body.Channel,
			Text:    body.Text,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, dto)
	}
}

func AdminSystemMail(svc commands.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "command service unavailable"))
			return
		}

		var body systemMailRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.EnqueueSystemMail(r.Context(), middleware.AccountIDFromContext(r.Context()), gameserver.SystemMail{
			RoleID:  body.RoleID,
			Title:   body.Title,
			Body:    body.Body,
			Coins:   body.Coins,
			ItemID:  body.ItemID,
			ItemQty: body.ItemQty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, dto)
	}
}

func AdminListCommands(svc commands.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "command service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCommands(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
