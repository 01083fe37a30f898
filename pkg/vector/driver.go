// Package vector provides interfaces and implementations for similarity
// search over memory unit embeddings.
package vector

import "context"

// Document is a stored memory embedding keyed by its unit id.
type Document struct {
	// ID is the memory unit id the embedding belongs to.
	ID string

	// Scope is the unit's project scope; empty for user-level units.
	Scope string

	// Embedding is the vector representation of the unit summary.
	Embedding []float32
}

// QueryResult is a search hit with its similarity score.
type QueryResult struct {
	Document

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of memory embeddings.
type Driver interface {
	// Add stores documents with their embeddings. A document whose ID
	// already exists is updated in place.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown ids are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
