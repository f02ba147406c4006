package match

import "errors"

// ErrInvalidSpec indicates a malformed match specification: an invalid
// regular expression, a bad range, an empty condition or a keyword set with
// no keywords. It is surfaced when the branch is registered.
var ErrInvalidSpec = errors.New("match: invalid specification")
