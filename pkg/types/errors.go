package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyChunkID = errors.New("chunk id cannot be empty")
	ErrEmptyDocID   = errors.New("doc id cannot be empty")
	ErrEmptyText    = errors.New("chunk text cannot be empty")
)
