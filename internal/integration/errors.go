package integration

import "github.com/krishnapaul242/gati-sub004"

// ErrNoHandler is returned when a path resolves a version but no host
// handler is registered to serve it (spec §4.7, "no handler").
var ErrNoHandler = timescape.NewError(timescape.CodeVersionNotFound, "no handler registered for path", nil)

// StatusFor maps a core error to the HTTP status the spec prescribes
// (spec §4.7: "400 for invalid format, 404 for version-not-found / no
// handler"). Unrecognized codes map to 500; nil maps to 200.
func StatusFor(err error) int {
	if err == nil {
		return 200
	}
	code, ok := timescape.CodeOf(err)
	if !ok {
		return 500
	}
	switch code {
	case timescape.CodeInvalidFormat, timescape.CodeInvalidTimestamp:
		return 400
	case timescape.CodeVersionNotFound, timescape.CodeTagNotFound:
		return 404
	case timescape.CodeChainTooLong:
		return 413
	case timescape.CodeNoTransformer, timescape.CodeTransformerFailed, timescape.CodeTransformerTimeout:
		return 502
	default:
		return 500
	}
}
