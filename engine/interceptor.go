// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package engine

import (
	"context"

	"google.golang.org/grpc"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/session"
)

// UnaryServerInterceptor is a grpc.UnaryServerInterceptor for the
// services exposing the engine. It carries the session of the caller
// in the context and converts the errors into grpc statuses, so that
// clients see ResourceExhausted when the gate refuses a call.
func UnaryServerInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s, err := session.FromIncomingContext(ctx); err == nil {
		ctx = session.NewContext(ctx, s)
	} else if !errors.IsNotFound(err) {
		klog.V(2).Infof("engine: ignoring session of %s: %s", info.FullMethod, err)
	}
	rsp, err := handler(ctx, req)
	return rsp, errors.GRPCStatus(err)
}
