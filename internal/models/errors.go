package models

import "errors"

var (
	// ErrNotFound is returned when a part number does not resolve to a part.
	ErrNotFound = errors.New("part not found")
	// ErrDuplicateKey is returned when adding a part number that already exists.
	ErrDuplicateKey = errors.New("part number already exists")
	// ErrInvalidAmount is returned when a usage amount is not positive or exceeds stock.
	ErrInvalidAmount = errors.New("invalid quantity used")
	// ErrInvalidPart is returned when a new part lacks a part number or a name.
	ErrInvalidPart = errors.New("invalid part")
	// ErrBusy is returned when a part stays locked by another request for too long.
	ErrBusy = errors.New("inventory is busy")
	// ErrTimeout is returned when the store does not answer in time.
	ErrTimeout = errors.New("inventory store timed out")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already taken")
	// ErrInvalidCredentials is returned for unknown users, wrong passwords and empty input.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
