package domain

import "errors"

var (
	// ErrNotFound means the operation referenced an unknown feed id.
	ErrNotFound = errors.New("feed not found")

	// ErrInvalidInterval means a poll interval was zero or negative.
	ErrInvalidInterval = errors.New("poll interval must be a positive number of milliseconds")

	// ErrInvalidURL means the subscription URL could not be parsed.
	ErrInvalidURL = errors.New("invalid feed url")

	// ErrMalformedFeed means the fetched document cannot be projected into
	// a Notifier, e.g. an item carries neither guid nor link.
	ErrMalformedFeed = errors.New("malformed feed")
)
