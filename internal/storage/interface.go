package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Upload is an image received from a client, not yet stored
type Upload struct {
	Filename    string // name as sent by the client
	ContentType string // declared MIME type
	Size        int64  // declared size in bytes
	Reader      io.Reader
}

// StorageInterface defines the interface for file storage backends.
// Callers validate uploads before Put; backends only move bytes.
type StorageInterface interface {
	// Put writes the upload under folder/name
	Put(ctx context.Context, folder, name string, upload *Upload) error

	// Delete removes folder/name; a missing object is not an error
	Delete(ctx context.Context, folder, name string) error
}

// Error types

type UnsupportedMediaTypeError struct {
	ContentType string
}

func (e UnsupportedMediaTypeError) Error() string {
	return "Invalid file type. Only JPEG, PNG, and GIF are allowed."
}

type FileTooLargeError struct {
	Size    int64
	MaxSize int64
}

func (e FileTooLargeError) Error() string {
	return fmt.Sprintf("File size exceeds the %dMB limit.", e.MaxSize/(1024*1024))
}

// WriteError reports a failure while persisting bytes
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return "error saving file " + e.Path + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err rejects the upload itself, as
// opposed to a failure of the backend.
func IsValidationError(err error) bool {
	var mediaErr UnsupportedMediaTypeError
	var sizeErr FileTooLargeError
	return errors.As(err, &mediaErr) || errors.As(err, &sizeErr)
}

// limitedReader fails once more than maxSize bytes have been read
type limitedReader struct {
	reader    io.Reader
	maxSize   int64
	bytesRead int64
}

var errFileTooLarge = errors.New("file too large")

func (lr *limitedReader) Read(p []byte) (n int, err error) {
	n, err = lr.reader.Read(p)
	lr.bytesRead += int64(n)

	if lr.bytesRead > lr.maxSize {
		return n, errFileTooLarge
	}

	return n, err
}
