package lifecycle

import "github.com/krishnapaul242/gati-sub004"

var ErrAlreadyStarted = timescape.ErrAlreadyStarted
