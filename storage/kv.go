// Package storage - string key value stores used to hold database snapshots
package storage

import (
	"context"
	"errors"
)

// ErrStorageUnavailable the backing store cannot be reached at all
var ErrStorageUnavailable = errors.New("storage unavailable")

// KeyValueStorage a string key value store in the style of browser local storage
type KeyValueStorage interface {
	/*
		GetItem read the value of a key

			@param ctx context.Context - execution context
			@param key string - the key
			@returns the value, and whether the key exists
	*/
	GetItem(ctx context.Context, key string) (string, bool, error)

	/*
		SetItem write the value of a key, replacing any previous value

			@param ctx context.Context - execution context
			@param key string - the key
			@param value string - the value
	*/
	SetItem(ctx context.Context, key string, value string) error

	/*
		RemoveItem delete a key. Removing an unknown key is not an error.

			@param ctx context.Context - execution context
			@param key string - the key
	*/
	RemoveItem(ctx context.Context, key string) error

	// Close release the storage connection
	Close() error
}
