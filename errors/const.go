// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

// ErrCode is type for multiple reconizable errors.
type ErrCode int

// error codes
const (
	// if error is unknown
	Unknown ErrCode = 0

	// if the item not found in the space
	NotFound ErrCode = 1

	// if the item already present in the space
	AlreadyExists ErrCode = 2

	// if the argument is not valid
	InvalidArgument ErrCode = 3

	// if the caller could not be identified
	Unauthorized ErrCode = 4

	// admission refused as the configured concurrency maximum is
	// reached, caller is expected to back off and retry later
	CapacityExceeded ErrCode = 5

	// configured limit value could not be parsed
	MalformedLimitValue ErrCode = 6

	// configuration source could not be reached or read
	ConfigurationUnavailable ErrCode = 7

	// blocking wait was cancelled before completion
	Canceled ErrCode = 8
)

var codeNames = map[ErrCode]string{
	Unknown:                  "Unknown",
	NotFound:                 "NotFound",
	AlreadyExists:            "AlreadyExists",
	InvalidArgument:          "InvalidArgument",
	Unauthorized:             "Unauthorized",
	CapacityExceeded:         "CapacityExceeded",
	MalformedLimitValue:      "MalformedLimitValue",
	ConfigurationUnavailable: "ConfigurationUnavailable",
	Canceled:                 "Canceled",
}

func (c ErrCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}
