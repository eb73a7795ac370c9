package errordata

import (
	"context"
	"net/http"
)

type key struct{}

var errorDataKey key

// ErrorData carries the message and status a handler should show the user when a service
// fails. Internal error text stays in the logs.
type ErrorData struct {
	Message string
	Status  int
}

func WithErrorData(ctx context.Context) context.Context {
	return context.WithValue(ctx, errorDataKey, &ErrorData{})
}

func GetErrorData(ctx context.Context) *ErrorData {
	ed, ok := ctx.Value(errorDataKey).(*ErrorData)
	if !ok {
		return nil
	}
	return ed
}

func (ed *ErrorData) SetMessage(msg string) {
	ed.Message = msg
}

func (ed *ErrorData) HasMessage() bool {
	return ed.Message != ""
}

// Set records msg and status on ctx when error data is attached.
func Set(ctx context.Context, status int, msg string) {
	if ed := GetErrorData(ctx); ed != nil {
		ed.Message = msg
		ed.Status = status
	}
}

// Resolve picks what to send for err: the recorded message and status when present,
// otherwise err's text with fallbackStatus.
func Resolve(ctx context.Context, err error, fallbackStatus int) (int, string) {
	if ed := GetErrorData(ctx); ed != nil && ed.HasMessage() {
		status := ed.Status
		if status == 0 {
			status = fallbackStatus
		}
		return status, ed.Message
	}
	if err == nil {
		return fallbackStatus, http.StatusText(fallbackStatus)
	}
	return fallbackStatus, err.Error()
}
