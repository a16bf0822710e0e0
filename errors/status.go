// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var grpcCodes = map[ErrCode]codes.Code{
	Unknown:                  codes.Unknown,
	NotFound:                 codes.NotFound,
	AlreadyExists:            codes.AlreadyExists,
	InvalidArgument:          codes.InvalidArgument,
	Unauthorized:             codes.Unauthenticated,
	CapacityExceeded:         codes.ResourceExhausted,
	MalformedLimitValue:      codes.InvalidArgument,
	ConfigurationUnavailable: codes.Unavailable,
	Canceled:                 codes.Canceled,
}

var httpCodes = map[ErrCode]int{
	Unknown:                  http.StatusInternalServerError,
	NotFound:                 http.StatusNotFound,
	AlreadyExists:            http.StatusConflict,
	InvalidArgument:          http.StatusBadRequest,
	Unauthorized:             http.StatusUnauthorized,
	CapacityExceeded:         http.StatusTooManyRequests,
	MalformedLimitValue:      http.StatusBadRequest,
	ConfigurationUnavailable: http.StatusServiceUnavailable,
	// nginx style client closed request, nobody is left to read it
	Canceled: 499,
}

// GRPCStatus converts the error into a grpc status error, errors
// already carrying a grpc status are returned as is
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(grpcCodes[GetErrCode(err)], err.Error())
}

// HTTPStatus returns the http status code for the error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return httpCodes[GetErrCode(err)]
}
