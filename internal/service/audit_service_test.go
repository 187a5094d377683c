package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/hotel-booking/internal/events"
)

func TestAuditService_LogsAuthEvents(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: "e-1", Type: events.EventUserLoggedIn, SubjectID: "u-1", Timestamp: time.Now(),
		Payload: events.LoginPayload{Method: events.LoginMethodCredentials, Email: "abul@gmail.com", Role: "user"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: "e-2", Type: events.EventLoginFailed, Timestamp: time.Now(),
		Payload: events.LoginFailedPayload{Method: events.LoginMethodCredentials, Email: "abul@gmail.com", Reason: "invalid credentials"},
	}))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "UserLoggedIn", entries[0].Message)
	assert.Equal(t, "credentials", entries[0].ContextMap()["method"])
	assert.Equal(t, "LoginFailed", entries[1].Message)
	assert.Equal(t, "invalid credentials", entries[1].ContextMap()["reason"])
}
