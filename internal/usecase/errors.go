package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNoStandings           = errors.New("no standings collected")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
