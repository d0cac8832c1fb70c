package resolver

import "github.com/krishnapaul242/gati-sub004"

var (
	ErrInvalidFormat    = timescape.ErrInvalidFormat
	ErrInvalidTimestamp = timescape.ErrInvalidTimestamp
	ErrVersionNotFound  = timescape.ErrVersionNotFound
)
