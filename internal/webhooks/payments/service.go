package paymentwebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pwvale/panel-backend/internal/donations"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
	"github.com/pwvale/panel-backend/pkg/logger"
)

// Event types delivered by the payment gateway.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentCancelled = "payment.cancelled"
)

// Event is the gateway callback payload after signature verification.
type Event struct {
	ID         string `json:"event_id"`
	Type       string `json:"type"`
	DonationID uint64 `json:"donation_id"`
	Reference  string `json:"reference"`
}

// ParseEvent decodes and validates a raw callback body.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode gateway event")
	}
	if event.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event type is required")
	}
	if event.DonationID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id is required")
	}
	return &event, nil
}

// Service routes verified gateway events to the donation workflow.
type Service struct {
	donations donations.Service
	logg      *logger.Logger
}

func NewService(donationSvc donations.Service, logg *logger.Logger) (*Service, error) {
	if donationSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "donations service required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{donations: donationSvc, logg: logg}, nil
}

// HandleEvent applies the event. Unknown event types are acknowledged without
// action so the gateway does not retry them forever.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}

	ctx = s.logg.WithDonationID(ctx, event.DonationID)

	switch event.Type {
	case EventPaymentCompleted:
		result, err := s.donations.HandleSettlement(ctx, donations.SettlementInput{
			DonationID:        event.DonationID,
			ExternalReference: event.Reference,
		})
		if err != nil {
			return err
		}
		if result.AlreadySettled {
			s.logg.Info(ctx, "settlement event was a duplicate")
		}
		return nil
	case EventPaymentCancelled:
		return s.donations.HandleCancellation(ctx, event.DonationID)
	default:
		s.logg.Warn(ctx, fmt.Sprintf("ignoring unknown gateway event type %q", event.Type))
		return nil
	}
}
