package interp

// Error is a command failure with its wire code.
type Error struct {
	Code int8
	Text string
}

func (e *Error) Error() string {
	return e.Text
}

var (
	ErrOutOfRange       = &Error{Code: 1, Text: "Out of range"}
	ErrReadNotSupported = &Error{Code: 2, Text: "Read not supported"}
	ErrLineTooLong      = &Error{Code: 3, Text: "Too long"}
	ErrUnknownCommand   = &Error{Code: 4, Text: "Unknown"}
	ErrUnexpectedToken  = &Error{Code: 5, Text: "Unexpected"}

	// errSilent means the command already reported its own result.
	errSilent = &Error{Code: -1}
)
