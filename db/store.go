// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Initial reference and motivation taken from
// https://gitlab.com/project-emco/core/emco-base/-/blob/main/src/orchestrator/pkg/infra/db

package db

import (
	"context"
	"reflect"
)

// WatchCallbackfn is invoked for every change observed on a
// collection with the operation and the decoded document key
type WatchCallbackfn func(op string, wKey any)

// StoreCollection provides access to documents keyed by their _id
type StoreCollection interface {
	// Set KeyType for the collection, used to decode the keys
	// provided to the watch callback, only pointer types supported
	SetKeyType(keyType reflect.Type) error

	// inserts or updates one entry with given key and data
	UpdateOne(ctx context.Context, key any, data any, upsert bool) error

	// find one entry for the given key, decoded into data
	FindOne(ctx context.Context, key any, data any) error

	// find multiple entries matching the filter, decoded into the
	// list passed as data
	FindMany(ctx context.Context, filter any, data any, opts ...any) error

	// remove one entry matching the given key
	DeleteOne(ctx context.Context, key any) error

	// remove all entries matching the filter, returns the count
	DeleteMany(ctx context.Context, filter any) (int64, error)

	// watch the collection for changes until ctx is done
	Watch(ctx context.Context, filter any, cb WatchCallbackfn) error
}

// Store is a database holding collections
type Store interface {
	// Name of the database
	Name() string

	// Get the collection handle for the given name
	GetCollection(name string) StoreCollection
}

type StoreClient interface {
	// Get the Data Store interface given the client interface
	GetDataStore(dbName string) Store

	// gets the collection inside the database
	GetCollection(dbName, col string) StoreCollection

	// Health Check, if the Store is connectable and healthy
	// returns the status of health of the server by means of
	// error if error is nil the health of the DB store can be
	// considered healthy
	HealthCheck(ctx context.Context) error

	// Disconnect the client from the server
	Disconnect(ctx context.Context) error
}
