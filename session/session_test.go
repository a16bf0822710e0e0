// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc/metadata"

	"github.com/go-core-stack/throttle/errors"
)

func TestHeaderRoundTrip(t *testing.T) {
	r := &http.Request{
		Header: http.Header{},
	}
	info := &Info{
		Realm:     "root",
		UserName:  "admin",
		SessionID: "abc",
	}
	if err := SetHeader(r, info); err != nil {
		t.Fatalf("failed to set session header: %s", err)
	}
	if r.Header.Get(HttpClientAuthContext) != "eyJyZWFsbSI6InJvb3QiLCJwcmVmZXJyZWRfdXNlcm5hbWUiOiJhZG1pbiIsInNpZCI6ImFiYyJ9" {
		t.Errorf("unexpected encoded header %q", r.Header.Get(HttpClientAuthContext))
	}
	found, err := FromHeader(r)
	if err != nil {
		t.Fatalf("got error while getting session info: %s", err)
	}
	if diff := cmp.Diff(info, found); diff != "" {
		t.Errorf("session info mismatch (-want +got):\n%s", diff)
	}
}

func TestHeaderErrors(t *testing.T) {
	r := &http.Request{Header: http.Header{}}
	if _, err := FromHeader(r); !errors.IsNotFound(err) {
		t.Errorf("expected NotFound for missing header, got %v", err)
	}
	r.Header.Set(HttpClientAuthContext, "%%%")
	if _, err := FromHeader(r); !errors.IsUnauthorized(err) {
		t.Errorf("expected Unauthorized for garbage header, got %v", err)
	}
}

func TestClientID(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"session", Info{Realm: "root", UserName: "admin", SessionID: "abc"}, "abc"},
		{"user", Info{Realm: "root", UserName: "admin"}, "root/admin"},
		{"user without realm", Info{UserName: "admin"}, "admin"},
		{"empty", Info{}, AnonymousClient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.ClientID(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestClientIDFromContext(t *testing.T) {
	if got := ClientID(context.Background()); got != AnonymousClient {
		t.Errorf("expected anonymous client, got %q", got)
	}

	ctx := NewContext(context.Background(), &Info{SessionID: "ctx-session"})
	if got := ClientID(ctx); got != "ctx-session" {
		t.Errorf("expected session from context, got %q", got)
	}

	val, err := encode(&Info{SessionID: "grpc-session"})
	if err != nil {
		t.Fatalf("failed to encode: %s", err)
	}
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(GrpcClientAuthContext, val))
	if got := ClientID(ctx); got != "grpc-session" {
		t.Errorf("expected session from metadata, got %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := SetHeader(r, &Info{SessionID: "xyz"}); err != nil {
		t.Fatalf("failed to set session header: %s", err)
	}
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "xyz" {
		t.Errorf("expected session xyz, got %q", got)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != AnonymousClient {
		t.Errorf("expected anonymous client, got %q", got)
	}
}
