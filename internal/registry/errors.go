package registry

import "errors"

// Errors returned by registry operations. Most registry operations use an
// explicit "absent" boolean/zero-value return rather than an error (spec
// §4.1 "Failures"); these sentinels cover the few operations that do fail
// with something worth distinguishing (deserialize, mostly).
var (
	// ErrUnknownStatus is returned by Deserialize when a restored document
	// names a status outside {hot, warm, cold}. Unknown strings from a
	// restored snapshot must be rejected, not silently coerced.
	ErrUnknownStatus = errors.New("registry: unknown revision status in snapshot")

	// ErrOverlappingSets is returned by Deserialize when the active and
	// cold RID sets in a document overlap, violating the disjointness
	// invariant.
	ErrOverlappingSets = errors.New("registry: active and cold version sets overlap")

	// ErrMalformedRID is returned by Register and Deserialize when a RID
	// string does not match the grammar.
	ErrMalformedRID = errors.New("registry: malformed revision identifier")
)
