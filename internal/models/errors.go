package models

import "errors"

var (
	// ErrMissingConfiguration is returned at startup when a required setting is absent
	ErrMissingConfiguration = errors.New("missing required configuration")
	// ErrInvalidChunkConfig is returned when overlap is not smaller than the chunk size
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")
	// ErrMissingPlaceholderValue is returned when a template is rendered without its value
	ErrMissingPlaceholderValue = errors.New("missing placeholder value")
	// ErrEmptyText is returned when there is nothing to embed
	ErrEmptyText = errors.New("text cannot be empty")

	ErrEmbeddingService  = errors.New("embedding service error")
	ErrIndexUpsert       = errors.New("index upsert error")
	ErrIndexSearch       = errors.New("index search error")
	ErrIndexNotPopulated = errors.New("index not populated")
	ErrChatService       = errors.New("chat service error")
)
