package games

import "errors"

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date (expected YYYY-MM-DD)")
