package app

// ErrorKind classifies a business-rule violation so the transport layer can
// map it to an HTTP status without string matching.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Error is a workflow failure with a caller-safe message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func authenticationErr(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func authorizationErr(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func notFoundErr(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func conflictErr(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}
