package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zktoken/zktoken-core/log"
)

// Error is used by handler functions to wrap errors, assigning a unique error
// code and the HTTP status to respond with.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Predefined API errors.
var (
	ErrMalformedToken = Error{
		Err:        errors.New("malformed token address"),
		Code:       4000,
		HTTPstatus: http.StatusBadRequest,
	}
	ErrMarshalingServerJSONFailed = Error{
		Err:        errors.New("marshaling (server-side) json failed"),
		Code:       5000,
		HTTPstatus: http.StatusInternalServerError,
	}
)

// MarshalJSON returns a JSON containing Err.Error() and Code. Field
// HTTPstatus is ignored.
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually include the error string,
	// since it wouldn't be marshaled otherwise. (json.Marshal doesn't call Err.Error())
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the message contained inside the API error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Write serializes the error as JSON with the configured HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of the error with the formatted string appended.
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the error with err appended.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}
