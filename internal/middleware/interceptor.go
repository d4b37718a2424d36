package middleware

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const clientIDHeader = "x-client-id"

type clientIDKey struct{}

// GetClientID returns the caller's client id, preferring a value stored by the
// interceptor and falling back to incoming metadata.
func GetClientID(ctx context.Context) string {
	if val, ok := ctx.Value(clientIDKey{}).(string); ok {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(clientIDHeader); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

func UnaryLoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		clientID := GetClientID(ctx)
		ctx = context.WithValue(ctx, clientIDKey{}, clientID)

		start := time.Now()
		resp, err := handler(ctx, req)
		logCall(log, info.FullMethod, clientID, time.Since(start), err)
		return resp, err
	}
}

func StreamLoggingInterceptor(log logger.ZapLogger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		clientID := GetClientID(ss.Context())
		log.Debug("stream opened", zap.String("method", info.FullMethod), zap.String("client_id", clientID))

		start := time.Now()
		err := handler(srv, ss)
		logCall(log, info.FullMethod, clientID, time.Since(start), err)
		return err
	}
}

func logCall(log logger.ZapLogger, method, clientID string, latency time.Duration, err error) {
	code := status.Code(err)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("client_id", clientID),
		zap.Duration("latency", latency),
		zap.String("code", code.String()),
	}

	switch code {
	case codes.OK, codes.Canceled:
		log.Info("grpc call completed", fields...)
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		log.Error("grpc call completed", append(fields, zap.Error(err))...)
	default:
		log.Warn("grpc call completed", append(fields, zap.Error(err))...)
	}
}
