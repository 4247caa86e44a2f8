package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pwvale/panel-backend/api/responses"
	"github.com/pwvale/panel-backend/internal/gateway"
	paymentwebhook "github.com/pwvale/panel-backend/internal/webhooks/payments"
	"github.com/pwvale/panel-backend/pkg/config"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

const maxWebhookBody = 64 << 10

type paymentEventHandler interface {
	HandleEvent(ctx context.Context, event *paymentwebhook.Event) error
}

type paymentGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PaymentWebhook receives gateway settlement callbacks. The HMAC signature is
// checked before anything touches the donation workflow; the Redis guard only
// short-circuits duplicates, the donation status CAS stays authoritative.
func PaymentWebhook(svc paymentEventHandler, cfg config.GatewayConfig, guard paymentGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(gateway.SignatureHeader)
		if !gateway.VerifySignature(cfg.WebhookSecret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		event, err := paymentwebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			_ = guard.Delete(ctx, event.ID)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("gateway event %s processed", event.ID))
		}
		responses.WriteSuccess(w, nil)
	}
}
