package models

import "errors"

var (
	ErrAuthFailure         = errors.New("authentication failed")
	ErrDuplicateVote       = errors.New("you have already voted on this alert")
	ErrUnknownUser         = errors.New("user does not exist")
	ErrLocationUnavailable = errors.New("unable to retrieve location")
	ErrStoreFailure        = errors.New("store failure")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
)
