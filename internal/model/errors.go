package model

import "errors"

var (
	ErrEmptyContent    = errors.New("content is empty")
	ErrInvalidKind     = errors.New("invalid post kind")
	ErrPostNotFound    = errors.New("post not found")
	ErrNotOwner        = errors.New("post belongs to another user")
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidHandle   = errors.New("invalid handle")
)
