// Errors and error handling

package fs

import "errors"

// Globals
var (
	ErrorObjectNotFound     = errors.New("object not found")
	ErrorNotEnoughArguments = errors.New("not enough arguments")
	ErrorTooManyArguments   = errors.New("too many arguments")
)
