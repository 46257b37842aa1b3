// Package apperr defines the coded error model returned by the transfer engine.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Placeholder is the template variable substituted by Render.
const Placeholder = "{ext}"

// Code is a numeric error code paired with a message template.
type Code struct {
	Value    int
	Template string
}

// Render substitutes detail into the template. Templates without a
// placeholder are returned unchanged.
func (c Code) Render(detail string) string {
	return strings.ReplaceAll(c.Template, Placeholder, detail)
}

// Error catalog.
var (
	CodeInvalidArgument = Code{Value: 4004, Template: "argument [{ext}] is invalid"}
	CodeServerError     = Code{Value: 5000, Template: "server error"}
	CodeObjectStore     = Code{Value: 5009, Template: "OSS service error: {ext}"}
	CodeSFTP            = Code{Value: 5012, Template: "SFTP service error: {ext}"}
)

// Sentinel errors, usable with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrSessionClosed   = errors.New("session is closed")
	ErrTooManyParts    = errors.New("too many parts")
)

// Error is a domain error carrying the operation and path that failed.
type Error struct {
	Code Code
	Op   string
	Path string
	Err  error
}

// New creates an Error for op on path wrapping err.
func New(code Code, op, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

// SFTP wraps err as an SFTP access failure.
func SFTP(op, path string, err error) *Error {
	return New(CodeSFTP, op, path, err)
}

// ObjectStore wraps err as an object store access failure.
func ObjectStore(op, path string, err error) *Error {
	return New(CodeObjectStore, op, path, err)
}

// Wrap attaches code, op and path to err. It returns nil for a nil err and
// leaves errors that already carry a code untouched.
func Wrap(code Code, op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return New(code, op, path, err)
}

// InvalidArgument reports a rejected argument by name.
func InvalidArgument(op, name string) *Error {
	return &Error{Code: CodeInvalidArgument, Op: op, Path: name, Err: ErrInvalidArgument}
}

func (e *Error) detail() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Message renders the user-facing message for the error.
func (e *Error) Message() string {
	if e.Code == CodeInvalidArgument {
		return e.Code.Render(e.Path)
	}
	return e.Code.Render(e.detail())
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code.Value, e.Message())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON emits the error as {"code": ..., "message": ...}.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}{
		Code:    e.Code.Value,
		Message: e.Message(),
	})
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeServerError when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServerError
}

// Payload returns the JSON payload for any error. Errors outside the
// catalog are reported as server errors.
func Payload(err error) []byte {
	var e *Error
	if !errors.As(err, &e) {
		e = New(CodeServerError, "", "", err)
	}
	data, mErr := json.Marshal(e)
	if mErr != nil {
		return []byte(fmt.Sprintf(`{"code":%d}`, e.Code.Value))
	}
	return data
}
