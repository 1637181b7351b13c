package gotrue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

var (
	ErrNoSession     = errors.New("no session for principal")
	ErrUnauthorized  = errors.New("session rejected")
	ErrRejected      = errors.New("request rejected")
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("provider rate limit")
	ErrUnavailable   = errors.New("provider unavailable")
	ErrInvalidClaims = errors.New("invalid token claims")
)

type errorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Msg, b.Message, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	var eb errorBody
	body := strings.TrimSpace(string(resp.Body()))
	if json.Unmarshal(resp.Body(), &eb) == nil && eb.text() != "" {
		body = eb.text()
	}
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, body)
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrRejected, body)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrUnavailable, code, body)
	default:
		return fmt.Errorf("http %d: %s", code, body)
	}
}
