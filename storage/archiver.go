// Package storage keeps finalized results in object storage so a history
// dump survives independently of the relational store.
package storage

import (
	"context"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// ResultArchiver stores serialized match and tournament results under a
// stable key. The settlement worker is its only caller and treats every
// failure as a logged collaborator error.
type ResultArchiver interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
