package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-booking/internal/events"
)

// AuditService writes auth events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleLoggedIn)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleRefreshed)
	a.dispatcher.Subscribe(events.EventSessionRefreshFailed, a.handleRefreshFailed)
	a.dispatcher.Subscribe(events.EventUserLoggedOut, a.handleLoggedOut)
}

func (a *AuditService) handleLoggedIn(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.LoginPayload); ok {
		fields = append(fields,
			zap.String("method", string(payload.Method)),
			zap.String("role", payload.Role),
			zap.String("provider", payload.Provider),
			zap.Bool("new_user", payload.NewUser))
	}
	a.logger.Info("UserLoggedIn", fields...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields,
			zap.String("method", string(payload.Method)),
			zap.String("email", payload.Email),
			zap.String("reason", payload.Reason))
	}
	a.logger.Warn("LoginFailed", fields...)
	return nil
}

func (a *AuditService) handleRefreshed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.RefreshPayload); ok {
		fields = append(fields, zap.Time("access_token_expires_at", payload.AccessTokenExpiresAt))
	}
	a.logger.Debug("SessionRefreshed", fields...)
	return nil
}

func (a *AuditService) handleRefreshFailed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if payload, ok := event.Payload.(events.RefreshPayload); ok {
		fields = append(fields, zap.String("error", payload.Error))
	}
	a.logger.Warn("SessionRefreshFailed", fields...)
	return nil
}

func (a *AuditService) handleLoggedOut(_ context.Context, event events.Event) error {
	a.logger.Info("UserLoggedOut", a.baseFields(event)...)
	return nil
}

func (a *AuditService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject_id", event.SubjectID),
		zap.Time("at", event.Timestamp),
	}
}
