package middleware

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func observed() (logger.ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func TestGetClientID(t *testing.T) {
	assert.Empty(t, GetClientID(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-client-id", "kiosk-7"))
	assert.Equal(t, "kiosk-7", GetClientID(ctx))
}

func TestUnaryLoggingInterceptor(t *testing.T) {
	log, logs := observed()
	intercept := UnaryLoggingInterceptor(log)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-client-id", "kiosk-7"))
	info := &grpc.UnaryServerInfo{FullMethod: "/omnipos.catalog.v1.CatalogViewService/ListView"}

	var seen string
	resp, err := intercept(ctx, "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		seen = GetClientID(ctx)
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "kiosk-7", seen)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, info.FullMethod, fields["method"])
	assert.Equal(t, "kiosk-7", fields["client_id"])
	assert.Equal(t, "OK", fields["code"])
	assert.Contains(t, fields, "latency")
}

func TestUnaryLoggingInterceptor_ErrorLevels(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level zapcore.Level
	}{
		{"not found", status.Error(codes.NotFound, "no product selected"), zapcore.WarnLevel},
		{"invalid", status.Error(codes.InvalidArgument, "id is required"), zapcore.WarnLevel},
		{"internal", status.Error(codes.Internal, "boom"), zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observed()
			_, err := UnaryLoggingInterceptor(log)(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
				func(context.Context, interface{}) (interface{}, error) { return nil, tt.err })

			assert.Equal(t, tt.err, err)
			require.Len(t, logs.All(), 1)
			assert.Equal(t, tt.level, logs.All()[0].Level)
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamLoggingInterceptor(t *testing.T) {
	log, logs := observed()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-client-id", "tablet"))
	err := StreamLoggingInterceptor(log)(nil, &fakeServerStream{ctx: ctx}, &grpc.StreamServerInfo{FullMethod: "/x/Watch"},
		func(interface{}, grpc.ServerStream) error { return status.Error(codes.Canceled, "gone") })

	assert.Equal(t, codes.Canceled, status.Code(err))
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "stream opened", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "tablet", entries[1].ContextMap()["client_id"])
}
