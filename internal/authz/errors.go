package authz

// Kind classifies an authorization failure.
type Kind string

const (
	KindUnknownPool        Kind = "UNKNOWN_POOL"
	KindVaultMismatch      Kind = "VAULT_MISMATCH"
	KindMintMismatch       Kind = "MINT_MISMATCH"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindIndexOutOfRange    Kind = "INDEX_OUT_OF_RANGE"
	KindInvalidDestination Kind = "INVALID_DESTINATION"
	KindInvalidAction      Kind = "INVALID_ACTION"
	KindInvalidAmount      Kind = "INVALID_AMOUNT"
)

// Error is returned by Validate. Every Error is detected before any mutation
// and is recoverable by fixing the request.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrUnknownPool        = &Error{Kind: KindUnknownPool}
	ErrVaultMismatch      = &Error{Kind: KindVaultMismatch}
	ErrMintMismatch       = &Error{Kind: KindMintMismatch}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrIndexOutOfRange    = &Error{Kind: KindIndexOutOfRange}
	ErrInvalidDestination = &Error{Kind: KindInvalidDestination}
	ErrInvalidAction      = &Error{Kind: KindInvalidAction}
	ErrInvalidAmount      = &Error{Kind: KindInvalidAmount}
)

func (e *Error) Error() string {
	msg := "authz: " + string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func reject(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: cause}
}
