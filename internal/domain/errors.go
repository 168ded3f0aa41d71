package domain

import "errors"

var (
	// ErrNoTarget means the caller configured neither an authenticated subject
	// nor a manual contact. This is a programmer error and surfaces loudly.
	ErrNoTarget = errors.New("no target set: provide a subject or a contact")

	ErrSubjectNotFound = errors.New("subject not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrDispatchFailed  = errors.New("notification dispatch failed")
)
