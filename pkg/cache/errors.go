package cache

import "errors"

var (
	// ErrCacheMiss is returned by helpers that cannot express a miss as a bool.
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("cache closed")
)
