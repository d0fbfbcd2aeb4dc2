package models

import "errors"

var (
	// ErrNotFound indicates a directory, file or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTransport indicates the embedding or chat service was unreachable
	// or answered with malformed data.
	ErrTransport = errors.New("transport error")

	// ErrPersistence indicates the backing store could not be reached or written.
	ErrPersistence = errors.New("persistence error")

	// ErrMalformed indicates a stored value could not be decoded.
	ErrMalformed = errors.New("malformed data")

	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates two vectors of different length were combined.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrAlreadyEmbedded indicates a record's vector was already written.
	ErrAlreadyEmbedded = errors.New("embedding already attached")

	ErrUnsupported = errors.New("unsupported file format")
)
