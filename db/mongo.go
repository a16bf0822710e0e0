// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Initial reference and motivation taken from
// https://gitlab.com/project-emco/core/emco-base/-/blob/main/src/orchestrator/pkg/infra/db

package db

import (
	"context"
	"net"
	"reflect"
	"strconv"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/utils"
)

type mongoCollection struct {
	colName string      // name of the collection this collection object is working with
	col     *mongo.Collection
	keyType reflect.Type
}

// interprets mongo db error and returns library parsable error codes
func interpretMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrap(errors.AlreadyExists, err.Error())
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.Wrap(errors.NotFound, err.Error())
	}
	return err
}

// Set KeyType for the collection, this is not mandatory
// while the key type will be used by the interface implementer
// mainly for Watch Callback for providing decoded key, if not
// set watch will be working with the default decoders of
// interface implementer
// only pointer key type is supported as of now
// returns error if the key type is not a pointer
func (c *mongoCollection) SetKeyType(keyType reflect.Type) error {
	if keyType.Kind() != reflect.Ptr {
		// return error, as only pointer key type is supported
		return errors.Wrap(errors.InvalidArgument, "key type is not a pointer")
	}
	c.keyType = keyType
	return nil
}

// inserts or updates one entry with given key and data to the collection
// acts based on the flag passed for upsert
// returns errors if entry not found while upsert flag is false or if
// there is a connection error with the database server
func (c *mongoCollection) UpdateOne(ctx context.Context, key any, data any, upsert bool) error {
	if data == nil {
		return errors.Wrap(errors.InvalidArgument, "db Update error: No data to store")
	}
	if key == nil {
		return errors.Wrap(errors.InvalidArgument, "db Update error: No Key specified to store")
	}

	opts := options.UpdateOne().SetUpsert(upsert)
	resp, err := c.col.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.D{
			{Key: "$set", Value: data},
		},
		opts)

	if err != nil {
		return interpretMongoError(err)
	}

	// there should be at least one entry in matched count or
	// upserted count to not return an error here
	if resp.MatchedCount == 0 && resp.UpsertedCount == 0 {
		return errors.Wrap(errors.NotFound, "No Document found")
	}

	return nil
}

// Find one entry from the store collection for the given key, where the data
// value is returned based on the object type passed to it
func (c *mongoCollection) FindOne(ctx context.Context, key any, data any) error {
	resp := c.col.FindOne(ctx, bson.M{"_id": key})
	// decode the value returned by the mongodb client into the data
	// object passed by the caller
	if err := resp.Decode(data); err != nil {
		return interpretMongoError(err)
	}
	return nil
}

// Find multiple entries from the store collection for the given filter, where the data
// value is returned as a list based on the object type passed to it
func (c *mongoCollection) FindMany(ctx context.Context, filter any, data any, opts ...any) error {
	if filter == nil {
		filter = bson.D{}
	}
	var findOpts []options.Lister[options.FindOptions]
	for _, opt := range opts {
		val, ok := opt.(options.Lister[options.FindOptions])
		if !ok {
			return errors.Wrapf(errors.InvalidArgument, "Invalid option type %T passed to FindMany", opt)
		}
		findOpts = append(findOpts, val)
	}
	cursor, err := c.col.Find(ctx, filter, findOpts...)
	if err != nil {
		return interpretMongoError(err)
	}
	if err = cursor.All(ctx, data); err != nil {
		return err
	}
	return nil
}

// remove one entry from the collection matching the given key
func (c *mongoCollection) DeleteOne(ctx context.Context, key any) error {
	resp, err := c.col.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return interpretMongoError(err)
	}
	if resp.DeletedCount == 0 {
		return errors.Wrap(errors.NotFound, "No Document found")
	}

	return nil
}

// Delete Many entries matching the delete criteria
// returns number of entries deleted and if there is any error processing the request
func (c *mongoCollection) DeleteMany(ctx context.Context, filter any) (int64, error) {
	if filter == nil {
		filter = bson.D{}
	}
	resp, err := c.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, interpretMongoError(err)
	}
	if resp.DeletedCount == 0 {
		return 0, errors.Wrap(errors.NotFound, "No matching entries found to delete")
	}
	return resp.DeletedCount, nil
}

// change event as received on the change stream, only the parts
// required to notify the watcher
type changeEvent struct {
	Op  string `bson:"operationType"`
	Doc struct {
		Key bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
}

// decode the document key as per the configured key type
func decodeKey(keyType reflect.Type, raw bson.RawValue) (any, error) {
	if keyType == nil {
		var key any
		if err := raw.Unmarshal(&key); err != nil {
			return nil, err
		}
		return key, nil
	}
	key := reflect.New(keyType.Elem()).Interface()
	if err := raw.Unmarshal(key); err != nil {
		return nil, err
	}
	return key, nil
}

// watch allows getting notified whenever a change happens to a document
// in the collection
// allow provisiong for a filter to be passed on, where the callback
// function to receive only conditional notifications of the events
// listener is interested about
func (c *mongoCollection) Watch(ctx context.Context, filter any, cb WatchCallbackfn) error {
	if filter == nil {
		// if passed filter is nil, initialize it to empty pipeline object
		filter = mongo.Pipeline{}
	}
	switch v := filter.(type) {
	case mongo.Pipeline:
		// we are ok to proceed further
	default:
		return errors.Wrapf(errors.InvalidArgument, "Invalid watch filter pipeline type specified, %v", v)
	}
	// start watching on the collection with passed context
	stream, err := c.col.Watch(ctx, filter)
	if err != nil {
		return interpretMongoError(err)
	}

	// run the loop on stream in a separate go routine
	// allowing the watch starter to resume control and work with
	// managing Watch stream by virtue of passed context
	go func() {
		// take a snapshot of keyTpe for processing watch
		keyType := c.keyType
		defer func() {
			// ignore the error returned by stream close as of now
			_ = stream.Close(context.Background())
		}()
		defer func() {
			if ctx.Err() == nil {
				klog.Errorf("db: watch on %s ended: %v", c.colName, stream.Err())
			}
		}()
		for stream.Next(ctx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				klog.Errorf("db: closing watch on %s due to decoding error %s", c.colName, err)
				return
			}

			key, err := decodeKey(keyType, event.Doc.Key)
			if err != nil {
				klog.Errorf("db: closing watch on %s, unable to decode key: %s", c.colName, err)
				return
			}
			cb(event.Op, key)
		}
	}()

	return nil
}

type mongoStore struct {
	db *mongo.Database
}

func (s *mongoStore) GetCollection(name string) StoreCollection {
	handle := s.db.Collection(name)
	c := &mongoCollection{
		colName: name,
		col:     handle,
	}

	return c
}

func (s *mongoStore) Name() string {
	return s.db.Name()
}

type mongoClient struct {
	client *mongo.Client
}

type MongoConfig struct {
	Host     string
	Port     string
	Uri      string
	Username string
	Password string
}

func (c *MongoConfig) validate() error {
	if c.Uri != "" {
		if c.Host != "" || c.Port != "" {
			return errors.Wrap(errors.InvalidArgument, "cannot provide host and port if uri is configured")
		}
	} else {
		if c.Host == "" {
			c.Host = "localhost"
		}
		if c.Port == "" || c.Port == "0" {
			c.Port = "27017"
		} else {
			if _, err := strconv.Atoi(c.Port); err != nil {
				return errors.Wrap(errors.InvalidArgument, "invalid database port")
			}
		}
	}
	return nil
}

func NewMongoClient(conf *MongoConfig) (StoreClient, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}
	var uri string
	if conf.Uri != "" {
		uri = conf.Uri
	} else {
		uri = "mongodb://" + net.JoinHostPort(conf.Host, conf.Port)
	}
	clientOptions := options.Client()
	clientOptions.ApplyURI(uri)
	clientOptions.SetAppName(getSourceIdentifier())
	clientOptions.SetAuth(options.Credential{
		AuthMechanism: "SCRAM-SHA-256",
		AuthSource:    "admin",
		Username:      conf.Username,
		Password:      conf.Password,
	})

	// by default ensure majority write concern and journal to be true
	// so that a settings change survives a primary failover
	wc := writeconcern.Majority()
	wc.Journal = utils.BoolP(true)
	clientOptions.SetWriteConcern(wc)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, errors.WrapErr(errors.ConfigurationUnavailable, err, "failed to connect to mongo")
	}

	mClient := &mongoClient{
		client: client,
	}
	return mClient, nil
}

// Gets Mongodb Data Store for given database name
// typically while working with mongodb it requires to work on a collection
// which is scoped inside a database construct of mongodb
func (c *mongoClient) GetDataStore(dbName string) Store {
	return &mongoStore{
		db: c.client.Database(dbName),
	}
}

// gets Mongo DB collection for given collection name
// inside a database specified with db name
func (c *mongoClient) GetCollection(dbName, col string) StoreCollection {
	s := c.GetDataStore(dbName)
	return s.GetCollection(col)
}

func (c *mongoClient) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

func (c *mongoClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
