package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a stored file does not exist
	ErrNotFound = errors.New("stored file not found")
	// ErrInvalidName rejects file names that are not plain names
	ErrInvalidName = errors.New("invalid file name")
)

// StorageInterface stores exported reports and digests by file name
type StorageInterface interface {
	Store(ctx context.Context, filename string, data []byte) error
	Retrieve(ctx context.Context, filename string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, filename string) error
}
