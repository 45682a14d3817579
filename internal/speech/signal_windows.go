//go:build windows

package speech

import (
	"errors"
	"os"
)

var errProcessDone = os.ErrProcessDone

var errPauseUnsupported = errors.New("pausing a speech process is not supported on windows")

func suspend(*os.Process) error { return errPauseUnsupported }

func resume(*os.Process) error { return nil }
