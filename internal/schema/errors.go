package schema

import "github.com/krishnapaul242/gati-sub004"

var (
	ErrNotRegistered    = timescape.NewError(timescape.CodeVersionNotFound, "schema version not registered", nil)
	ErrMigrationTimeout = timescape.ErrMigrationTimeout
	ErrMigrationFailed  = timescape.ErrMigrationFailed
	ErrRollbackFailed   = timescape.ErrRollbackFailed
)
