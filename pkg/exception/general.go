package exception

import "errors"

// General errors
var (
	ErrNilInstance     = errors.New("nil instance")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
)

// State errors
var (
	ErrSnapshotMismatch = errors.New("state: snapshot mismatch")
)
