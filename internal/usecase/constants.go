package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a single posting store transaction
	// so a stuck commit cannot hold account locks indefinitely.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultPageSize and MaxPageSize bound listing queries.
	DefaultPageSize = 20
	MaxPageSize     = 100
)
