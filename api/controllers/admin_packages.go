package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/api/validators"
	"github.com/pwvale/panel-backend/internal/catalog"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

type createPackageRequest struct {
	Name        string          `json:"name" validate:"required,min=1,max=64"`
	Price       decimal.Decimal `json:"price" validate:"required"`
	BaseAmount  int64           `json:"base_amount" validate:"required,gt=0"`
	BonusAmount int64           `json:"bonus_amount" validate:"gte=0"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,max=512"`
}

type updatePackageRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=64"`
	Price       *decimal.Decimal `json:"price"`
	BaseAmount  *int64           `json:"base_amount" validate:"omitempty,gt=0"`
	BonusAmount *int64           `json:"bonus_amount" validate:"omitempty,gte=0"`
	ImageURL    *string          `json:"image_url" validate:"omitempty,max=512"`
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid id in path").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

func AdminCreatePackage(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var body createPackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pkg, err := svc.CreatePackage(r.Context(), catalog.CreatePackageInput{
			Name:        body.Name,
			Price:       body.Price,
			BaseAmount:  body.BaseAmount,
			BonusAmount: body.BonusAmount,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pkg)
	}
}

func AdminUpdatePackage(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := pathID(r, "packageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePackageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pkg, err := svc.UpdatePackage(r.Context(), id, catalog.UpdatePackageInput{
			Name:        body.Name,
			Price:       body.Price,
			BaseAmount:  body.BaseAmount,
			BonusAmount: body.BonusAmount,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pkg)
	}
}

func AdminDeletePackage(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := pathID(r, "packageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePackage(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
