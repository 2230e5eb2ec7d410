package dialect

import "errors"

var (
	// ErrUnknownCommand is returned by Format when the command name is not
	// part of the dialect's template table.
	//
	// This is a caller or configuration error; no device I/O is performed.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument is returned by Format when a template placeholder
	// has no corresponding value in the argument set.
	ErrMissingArgument = errors.New("missing argument")

	// ErrInvalidArgument is returned when an argument cannot be interpreted,
	// for example a volume level that is not numeric.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEncoding is returned when a rendered command contains characters
	// that the dialect's wire encoding cannot represent.
	ErrEncoding = errors.New("cannot encode command")

	// ErrInvalidDialect is returned by Parse when a dialect definition is
	// incomplete or contains a pattern or template that does not compile.
	ErrInvalidDialect = errors.New("invalid dialect")

	// ErrUnknownDialect is returned by Load for a protocol name that is not
	// present in the embedded catalog.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrUnknownModel is returned by LookupModel for a device series that is
	// not present in the embedded catalog.
	ErrUnknownModel = errors.New("unknown model")
)
