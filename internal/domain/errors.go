package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrLockHeld        = errors.New("lock already held")
	ErrRateUnavailable = errors.New("rate unavailable")
	ErrNoTickers       = errors.New("no tickers")
	ErrNoSchemes       = errors.New("no schemes")
	ErrInvalidScheme   = errors.New("invalid scheme")
	ErrRateLimited     = errors.New("rate limited")
)
