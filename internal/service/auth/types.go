package auth

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Identity is what a verified credential resolves to. Username is the token
// subject and doubles as the user key on the chat transport.
type Identity struct {
	UserID   string
	Username string
	Email    string
}

type LoginParams struct {
	Username string
	Password string
}

// ProvisionPolicy decides whether an unknown username may be auto-created
// during websocket admission. Production deployments disable this entirely.
type ProvisionPolicy func(username string) bool
