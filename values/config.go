// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package values

import "os"

const (
	// Environment variable name providing the throttling config file
	ConfigFileEnv = "THROTTLE_CONFIG_FILE"

	// Default location of the throttling config file
	DefaultConfigFile = "/etc/throttle/throttle.yaml"

	// Environment variable name providing the mongo configdb uri, when
	// set the limits are read from mongo instead of the file
	MongoConfigDBUriEnv = "MONGO_CONFIGDB_URI"

	// Environment variable name providing the database holding the
	// settings collection
	MongoConfigDBNameEnv = "MONGO_CONFIGDB_NAME"

	// Default database holding the settings collection
	DefaultMongoConfigDBName = "config"

	// Environment variables providing the mongo configdb credentials,
	// both have to be set for either to be used
	MongoConfigDBUserNameEnv = "MONGO_CONFIGDB_USERNAME"
	MongoConfigDBPasswordEnv = "MONGO_CONFIGDB_PASSWORD"

	// Credentials of the local development replica set
	DefaultMongoConfigDBUserName = "root"
	DefaultMongoConfigDBPassword = "password"

	// Environment variable name providing the application name the
	// process reports to mongo, usually the name of the sync backend
	SourceIdentifierEnv = "THROTTLE_SOURCE_IDENTIFIER"
)

// lookup returns the value of a set and non empty environment variable
func lookup(env string) (string, bool) {
	v, ok := os.LookupEnv(env)
	return v, ok && v != ""
}

// Get the configured throttling config file
func GetConfigFile() string {
	if path, ok := lookup(ConfigFileEnv); ok {
		return path
	}
	return DefaultConfigFile
}

// Get the configured mongodb uri, empty when not set
func GetMongoConfigDBUri() string {
	return os.Getenv(MongoConfigDBUriEnv)
}

// Get the configured database holding the settings
func GetMongoConfigDBName() string {
	if name, ok := lookup(MongoConfigDBNameEnv); ok {
		return name
	}
	return DefaultMongoConfigDBName
}

// Get the configured mongodb credentials, the defaults are returned
// as a pair unless user and password are both provided
func GetMongoConfigDBCredentials() (string, string) {
	user, userOk := os.LookupEnv(MongoConfigDBUserNameEnv)
	pass, passOk := os.LookupEnv(MongoConfigDBPasswordEnv)
	if !userOk || !passOk {
		return DefaultMongoConfigDBUserName, DefaultMongoConfigDBPassword
	}
	return user, pass
}

// Get the application name to report to mongo, empty when not set
func GetSourceIdentifier() string {
	id, _ := lookup(SourceIdentifierEnv)
	return id
}
