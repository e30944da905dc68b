package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get and Delete when the key is absent.
	ErrKeyNotFound = errors.New("key not found")

	// ErrIO marks operating-system failures reading or writing the backing file.
	ErrIO = errors.New("backing file i/o failure")

	// ErrSerialization marks content that cannot be encoded, or a backing file
	// whose content cannot be decoded into the store's map type.
	ErrSerialization = errors.New("backing file serialization failure")
)

func keyNotFound(key any) error {
	return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
}

func ioFailure(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}

func serializationFailure(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrSerialization, op, path, err)
}
