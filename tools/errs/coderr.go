package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// Error codes for the gateway-facing taxonomy. HTTP handlers map these
// onto status codes; everything else classifies with errors.Is.
const (
	ServerInternalError = 500

	StoreUnavailableCode = 1001
	NotFoundCode         = 1002
	PermissionDeniedCode = 1003
	MediaUploadCode      = 1004
	InvalidEventCode     = 1005
	InvalidArgsCode      = 1006
)

var (
	ErrStoreUnavailable = NewCodeError(StoreUnavailableCode, "store unavailable")
	ErrNotFound         = NewCodeError(NotFoundCode, "record not found")
	ErrPermissionDenied = NewCodeError(PermissionDeniedCode, "permission denied")
	ErrMediaUpload      = NewCodeError(MediaUploadCode, "media upload failed")
	ErrInvalidEvent     = NewCodeError(InvalidEventCode, "invalid change event")
	ErrInvalidArgs      = NewCodeError(InvalidArgsCode, "invalid argument")
)

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

// WrapMsg returns a stack-carrying error with the sentinel's code and the
// given detail appended. kv pairs render as "k=v".
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	out := &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
	if msg != "" || len(kv) > 0 {
		detail := toString(msg, kv)
		if out.Detail == "" {
			out.Detail = detail
		} else {
			out.Detail += ", " + detail
		}
	}
	return pkgerr.WithStack(out)
}

func (e *CodeError) Wrap() error {
	return pkgerr.WithStack(e)
}

// Is matches any CodeError with the same code, so
// errors.Is(err, ErrNotFound) works across WrapMsg copies.
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// Code extracts the taxonomy code, or ServerInternalError for plain errors.
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerInternalError
}

func New(msg string, kv ...any) error {
	return pkgerr.New(toString(msg, kv))
}

func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithStack(err)
}

func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(kv); i += 2 {
		if i > 0 || msg != "" {
			sb.WriteString(" ")
		}
		key := fmt.Sprint(kv[i])
		var val any = "missing"
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		sb.WriteString(key)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprint(val))
	}
	return sb.String()
}
