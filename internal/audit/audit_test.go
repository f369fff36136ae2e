package audit

import (
	"errors"
	"testing"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Recorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewRecorder("order", logger.FromZap(zap.New(core))), logs
}

func TestRecorder_Success(t *testing.T) {
	r, logs := newObserved()

	got, err := Do(r, "create", UserActor(7), func(o *domain.Order) int64 { return o.ID }, func() (*domain.Order, error) {
		return &domain.Order{ID: 10}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(10), got.ID)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "order create", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "order", fields["entity"])
	assert.Equal(t, "user:7", fields["actor"])
	assert.Equal(t, int64(10), fields["entity_id"])
}

func TestRecorder_ValidationIsWarning(t *testing.T) {
	r, logs := newObserved()

	r.Record("create", UserActor(7), 0, domain.NewError(domain.KindValidation, domain.CodeEmptyOrder, "empty"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "order create rejected", entry.Message)
	assert.Equal(t, domain.CodeEmptyOrder, entry.ContextMap()["code"])
	assert.NotContains(t, entry.ContextMap(), "entity_id")
}

func TestRecorder_InternalIsError(t *testing.T) {
	r, logs := newObserved()

	_, err := Do[*domain.Order](r, "settle", SystemActor, nil, func() (*domain.Order, error) {
		return nil, errors.New("connection reset")
	})

	require.Error(t, err)
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "internal", entry.ContextMap()["kind"])
	assert.Equal(t, "connection reset", entry.ContextMap()["error"])
}
