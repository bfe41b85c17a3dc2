// Package datastore provides the in-memory key/value store behind the /data
// endpoints. Nothing is persisted; a restart starts empty.
package datastore
