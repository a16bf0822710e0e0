// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package session carries the identity of the client session through
// a request. The session id is the key of the per client byte rate
// budget.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc/metadata"

	"github.com/go-core-stack/throttle/errors"
)

// Info is obtained as part of the auth action performed in front of
// the sync backend, json tagged to allow passing it between services
type Info struct {
	Realm     string `json:"realm,omitempty"`
	UserName  string `json:"preferred_username"`
	SessionID string `json:"sid"`
}

// ClientID returns the key identifying the client for rate limiting,
// the session id when available, otherwise the user name.
func (i *Info) ClientID() string {
	if i.SessionID != "" {
		return i.SessionID
	}
	if i.UserName != "" {
		if i.Realm != "" {
			return i.Realm + "/" + i.UserName
		}
		return i.UserName
	}
	return AnonymousClient
}

// struct identifier for the context
type infoKey struct{}

func encode(info *Info) (string, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return "", errors.Wrapf(errors.InvalidArgument, "failed to generate session info: %s", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decode(val string) (*Info, error) {
	b, err := base64.RawURLEncoding.DecodeString(val)
	if err != nil {
		return nil, errors.Wrapf(errors.Unauthorized, "invalid session info received: %s", err)
	}
	info := &Info{}
	if err := json.Unmarshal(b, info); err != nil {
		return nil, errors.Wrapf(errors.Unauthorized, "failed to get session info: %s", err)
	}
	return info, nil
}

// SetHeader sets the session info header in the http request,
// typically used only by the entity that authenticated the request.
func SetHeader(r *http.Request, info *Info) error {
	val, err := encode(info)
	if err != nil {
		return err
	}
	r.Header.Set(HttpClientAuthContext, val)
	return nil
}

// FromHeader gets the session info available in the http request.
func FromHeader(r *http.Request) (*Info, error) {
	val := r.Header.Get(HttpClientAuthContext)
	if val == "" {
		return nil, errors.Wrapf(errors.NotFound, "session info not available in the http request")
	}
	return decode(val)
}

// FromIncomingContext gets the session info from the grpc metadata.
func FromIncomingContext(ctx context.Context) (*Info, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, errors.Wrapf(errors.NotFound, "no metadata available in incoming message")
	}
	vals := md.Get(GrpcClientAuthContext)
	if len(vals) != 1 {
		return nil, errors.Wrapf(errors.NotFound, "missing header: %s", GrpcClientAuthContext)
	}
	return decode(vals[0])
}

// NewContext returns a context carrying info.
func NewContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, infoKey{}, info)
}

// FromContext gets the session info carried by the context.
func FromContext(ctx context.Context) (*Info, error) {
	switch info := ctx.Value(infoKey{}).(type) {
	case *Info:
		return info, nil
	default:
		return nil, errors.Wrapf(errors.NotFound, "session info not found")
	}
}

// ClientID returns the client id of the session carried by the
// context, falling back to the grpc metadata and finally to
// AnonymousClient.
func ClientID(ctx context.Context) string {
	if info, err := FromContext(ctx); err == nil {
		return info.ClientID()
	}
	if info, err := FromIncomingContext(ctx); err == nil {
		return info.ClientID()
	}
	return AnonymousClient
}

// Middleware moves the session info header of incoming requests into
// the request context. Requests without a valid header are served as
// anonymous clients.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := FromHeader(r)
		if err == nil {
			r = r.WithContext(NewContext(r.Context(), info))
		}
		next.ServeHTTP(w, r)
	})
}
