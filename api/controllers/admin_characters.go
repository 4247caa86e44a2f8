package controllers

import (
	"net/http"

	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/api/validators"
	"github.com/pwvale/panel-backend/internal/characters"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

type teleportRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	WorldTag int     `json:"world_tag" validate:"required,gt=0"`
}

func AdminAccountCharacters(svc characters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "character service unavailable"))
			return
		}

		accountID, err := pathID(r, "accountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByAccount(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminGetCharacter(svc characters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "character service unavailable"))
			return
		}

		characterID, err := pathID(r, "characterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		character, err := svc.GetCharacter(r.Context(), characterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, character)
	}
}

// AdminTeleportCharacter rescues a stuck character by rewriting its saved
// position.
func AdminTeleportCharacter(svc characters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "character service unavailable"))
			return
		}

		characterID, err := pathID(r, "characterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body teleportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		character, err := svc.Teleport(r.Context(), characters.TeleportInput{
			CharacterID: characterID,
			X:           body.X,
			Y:           body.Y,
			Z:           body.Z,
			WorldTag:    body.WorldTag,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, character)
	}
}

func AdminCharacterInventory(svc characters.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "character service unavailable"))
			return
		}

		characterID, err := pathID(r, "characterId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.Inventory(r.Context(), characterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}
