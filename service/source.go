// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package service

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/go-core-stack/throttle/config"
	"github.com/go-core-stack/throttle/db"
	"github.com/go-core-stack/throttle/errors"
	"github.com/go-core-stack/throttle/values"
)

// collection holding the throttling settings
const settingsCollection = "throttle-settings"

// NewSourceFromEnv returns the configuration source selected by the
// environment, the mongo configdb when its uri is set and the config
// file otherwise.
func NewSourceFromEnv(ctx context.Context) (config.Source, error) {
	uri := values.GetMongoConfigDBUri()
	if uri == "" {
		return config.NewFileSource(values.GetConfigFile())
	}

	if id := values.GetSourceIdentifier(); id != "" && !db.SetSourceIdentifier(id) {
		klog.Warningf("service: mongo application name already in use, ignoring %s", id)
	}
	user, pass := values.GetMongoConfigDBCredentials()
	client, err := db.NewMongoClient(&db.MongoConfig{
		Uri:      uri,
		Username: user,
		Password: pass,
	})
	if err != nil {
		return nil, err
	}
	if err := client.HealthCheck(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.WrapErr(errors.ConfigurationUnavailable, err, "mongo configdb not reachable")
	}

	name := values.GetMongoConfigDBName()
	klog.Infof("service: reading throttling limits from mongo %s/%s", name, settingsCollection)
	src, err := config.NewMongoSource(ctx, client.GetCollection(name, settingsCollection))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &mongoSource{MongoSource: src, client: client}, nil
}

// mongo source owning its client
type mongoSource struct {
	*config.MongoSource
	client db.StoreClient
}

func (s *mongoSource) Close() error {
	err := s.MongoSource.Close()
	if derr := s.client.Disconnect(context.Background()); err == nil {
		err = derr
	}
	return err
}
