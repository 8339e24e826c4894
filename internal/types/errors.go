package types

import "errors"

var (
	// ErrNetwork marks a failed or timed-out fetch from the quote source.
	ErrNetwork = errors.New("network error")
	// ErrMalformedResponse marks a response without usable bid/ask levels.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrConfiguration marks invalid granularity, precision or interval settings.
	ErrConfiguration = errors.New("configuration error")
)
