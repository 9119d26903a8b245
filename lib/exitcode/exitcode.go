// Package exitcode exports drivemeta's exit status numbers.
package exitcode

const (
	// Success is returned when drivemeta finished without error.
	Success = 0
	// UsageError is returned when there was a syntax or usage error
	// in the arguments, and for any error not categorised otherwise.
	UsageError = 1
	// FileNotFound is returned when an ID couldn't be read from Drive.
	FileNotFound = 4
	// FatalError is returned for errors one or more retries won't
	// resolve, eg missing credentials.
	FatalError = 7
)
