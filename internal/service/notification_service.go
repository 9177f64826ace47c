package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/shipment-tracker/internal/config"
	"github.com/spec-kit/shipment-tracker/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Dispatch is fire-and-forget: a failed notification never fails the
// operation that produced the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventShipmentCreated, n.handleShipmentCreated)
	n.dispatcher.Subscribe(events.EventDriverAssigned, n.handleDriverAssigned)
	n.dispatcher.Subscribe(events.EventShipmentStatusChanged, n.handleStatusChanged)
}

func (n *NotificationService) handleShipmentCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ShipmentCreated", zap.String("shipment_id", event.ShipmentID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleDriverAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("DriverAssigned", zap.String("shipment_id", event.ShipmentID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ShipmentStatusChanged", zap.String("shipment_id", event.ShipmentID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("shipment_id", event.ShipmentID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("shipment_id", event.ShipmentID),
		zap.String("event_type", string(event.Type)))
}
