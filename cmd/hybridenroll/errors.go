package main

import (
	"errors"
	"fmt"
)

// InfoCmd indicates hybridenroll was called with an informational flag (for
// example --version) and should exit without doing any work.
type InfoCmd struct {
	msg string
}

func NewInfoCmdError(cmd string) InfoCmd {
	return InfoCmd{
		msg: fmt.Sprintf("hybridenroll called with info cmd %s", cmd),
	}
}

func (e InfoCmd) Error() string {
	return e.msg
}

func (e InfoCmd) Is(target error) bool {
	if _, ok := target.(InfoCmd); ok {
		return true
	}
	return false
}

func IsInfoCmd(err error) bool {
	return errors.Is(err, InfoCmd{})
}
