package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError is the error shape every subsystem failure is reported as.
// Code identifies the class, Msg is fixed, Detail is per-occurrence.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail returns a copy carrying extra per-occurrence detail.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// WrapMsg attaches detail and a stack trace.
func (e *CodeError) WrapMsg(detail string) error {
	return pkgerr.WithStack(e.WithDetail(detail))
}

func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Wrap adds a stack trace to err, nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithStack(err)
}

// WrapMsg adds a message and stack trace to err, nil stays nil.
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, msg)
}

func New(msg string) error {
	return pkgerr.New(msg)
}

// Error taxonomy of the presence/fan-out engine. Handled locally by the
// component that detects them; none are fatal to a connection or to the
// bridge subscription loop.
var (
	// ErrTransientStore: a presence/room/counter operation failed because the
	// store was unavailable; already retried with bounded attempts.
	ErrTransientStore = NewCodeError(12001, "transient store error")

	// ErrPersistenceFailed: durable message persistence failed; triggers the
	// one-shot corrective re-delivery, not a server-side retry loop.
	ErrPersistenceFailed = NewCodeError(12002, "message persistence failed")

	// ErrMalformedEnvelope: bridge input could not be parsed; dropped and logged.
	ErrMalformedEnvelope = NewCodeError(12003, "malformed envelope")

	// ErrUnknownRecipient: bridge envelope matched no connected user; dropped.
	ErrUnknownRecipient = NewCodeError(12004, "unknown recipient")

	// ErrMemberResolution: durable member could not be resolved to a live
	// connection; treated as not-live and counted as unread.
	ErrMemberResolution = NewCodeError(12005, "member not resolvable to live connection")

	// ErrNotAuthorized: control op received before the auth handshake finished.
	ErrNotAuthorized = NewCodeError(12006, "connection not authorized")
)
