// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package gate

import (
	"github.com/go-core-stack/throttle/errors"
)

// Kind of long running operation tracked by the gate.
type Kind int

const (
	// FileTransfer is an upload or download request moving file
	// content
	FileTransfer Kind = iota

	// SyncOperation is a bounded synchronization call, listing or
	// comparing folder and file state, quota or metadata lookups
	SyncOperation

	numKinds
)

// Unlimited disables the maximum for a kind.
const Unlimited = -1

// Kinds lists all kinds tracked by the gate.
var Kinds = []Kind{FileTransfer, SyncOperation}

func (k Kind) String() string {
	switch k {
	case FileTransfer:
		return "file-transfer"
	case SyncOperation:
		return "sync-operation"
	default:
		return "unknown"
	}
}

func (k Kind) validate() error {
	if k < 0 || k >= numKinds {
		return errors.Wrapf(errors.InvalidArgument, "invalid gate kind %d", int(k))
	}
	return nil
}

// LimitResolver provides the configured maximum of concurrent
// operations per kind, Unlimited when none is configured.
type LimitResolver interface {
	MaxConcurrent(kind Kind) (int, error)
}

// Limits is a fixed snapshot of the maxima.
type Limits struct {
	MaxFileTransfers  int
	MaxSyncOperations int
}

// UnlimitedLimits does not restrict any kind.
var UnlimitedLimits = Limits{
	MaxFileTransfers:  Unlimited,
	MaxSyncOperations: Unlimited,
}

// MaxConcurrent implements LimitResolver.
func (l Limits) MaxConcurrent(kind Kind) (int, error) {
	switch kind {
	case FileTransfer:
		return l.MaxFileTransfers, nil
	case SyncOperation:
		return l.MaxSyncOperations, nil
	}
	return Unlimited, kind.validate()
}
