package realtime

import "errors"

var ErrEventChannelFull = errors.New("realtime: event channel full")
