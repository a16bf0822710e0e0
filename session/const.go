// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package session

const (
	// Internal Auth Context Header, carries information of the
	// client session that has been authenticated.
	// Content is the json marshaled Info struct followed by base64
	// encoding of the json marshaled content.
	//
	// This is usually added by the auth gateway in front of the sync
	// backend, if present it indicates that authentication is done.
	HttpClientAuthContext = "Auth-Info"

	// grpc gateway will typically move the header to lowercase
	GrpcClientAuthContext = "auth-info"

	// client id used when no session is known, all such requests
	// share a single per client budget
	AnonymousClient = "anonymous"
)
