package internal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/bobinette/papershelf/errors"
)

// maxBodySize bounds what is read from a response body.
const maxBodySize = 10 << 20

// DecodeResponse reads the raw body of a successful response. Responses
// outside of the 2xx range are turned into errors carrying the status code
// and the message reported by the backend.
func DecodeResponse(_ context.Context, res *http.Response) (interface{}, error) {
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, DecodeError(res)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, errors.New("could not read response", errors.WithCode(http.StatusBadGateway), errors.WithCause(err))
	}
	return data, nil
}

// DecodeError builds the error of a failed call. The backend reports errors
// as {"error": "..."}, the "message" field is used as a fallback.
func DecodeError(res *http.Response) error {
	var callErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	data, _ := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	msg := ""
	if err := json.Unmarshal(data, &callErr); err == nil {
		msg = callErr.Error
		if msg == "" {
			msg = callErr.Message
		}
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	if msg == "" {
		msg = "unexpected response from server"
	}

	return errors.New(msg, errors.WithCode(res.StatusCode))
}
