package provider

import "errors"

var (
	ErrUnknownType   = errors.New("unknown integration type")
	ErrNotConfigured = errors.New("integration not configured")
)
