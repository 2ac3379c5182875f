package robot

import "errors"

// ErrUnknown indicates a catalog id or name that the firmware catalogs don't define.
var ErrUnknown = errors.New("unknown catalog entry")
