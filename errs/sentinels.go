package errs

import perrors "github.com/pkg/errors"

// Sentinel errors shared across packages, in the spirit of
// badu-http's types_http.go sentinel set (ErrHijacked, ErrBodyReadAfterClose,
// ...), but tagged with a Kind so callers can branch on errs.KindOf.
var (
	ErrBodyReadAfterClose = New(Protocol, 0, perrors.New("http: invalid Read on closed Body"))
	ErrHijacked           = New(Protocol, 0, perrors.New("http: connection has been hijacked"))
	ErrLineTooLong        = New(Protocol, 400, perrors.New("http: header line too long"))
	ErrMissingHost        = New(Policy, 400, perrors.New("http: Host header missing"))
	ErrHeadTooLarge       = New(Policy, 431, perrors.New("http: request head exceeds configured maximum"))
	ErrUnsupportedMethod  = New(Policy, 501, perrors.New("http: unsupported method"))
	ErrUnsupportedVersion = New(Policy, 505, perrors.New("http: unsupported HTTP version"))
	ErrBodyTooLarge       = New(Policy, 413, perrors.New("http: request body exceeds configured maximum"))
	ErrServerClosed       = New(Cancellation, 0, perrors.New("http: Server closed"))
	ErrAbortHandler       = perrors.New("http: abort Handler")
)
