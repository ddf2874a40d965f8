package rag

import "errors"

var (
	// ErrAuthentication covers a missing session key and key rejections
	// surfaced from the provider.
	ErrAuthentication = errors.New("authentication failed")

	// ErrEmptyIndex is returned when a query arrives before any document
	// has been ingested.
	ErrEmptyIndex = errors.New("no documents ingested")

	ErrEmptyQuestion = errors.New("question is empty")

	ErrEmptyDocument = errors.New("document has no text")
)
