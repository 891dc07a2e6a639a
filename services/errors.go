package services

import "errors"

// Sentinel errors returned by domain operations. Controllers branch on
// these with errors.Is and translate them to HTTP responses; anything
// else is treated as an internal storage failure and never surfaces its
// detail to the caller.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrUnauthorized  = errors.New("not allowed")
	ErrDuplicateName = errors.New("name or slug already taken")
	ErrAlreadyMember = errors.New("already a member of this loop")
	ErrNotMember     = errors.New("not a member of this loop")
	ErrLastAdmin     = errors.New("cannot leave as the last admin of this loop")
	ErrInvalidVote   = errors.New("invalid vote direction")
)
