package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/fwojciec/docindex"
	"github.com/google/go-github/v57/github"
)

// translateError converts go-github and transport failures into
// application errors. The returned message never contains request headers,
// so a credential cannot leak through it.
func translateError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return docindex.Errorf(docindex.ERATELIMIT, "rate limit exceeded, resets at %s",
			rateErr.Rate.Reset.Format(docindex.TimestampFormat))
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return docindex.Errorf(docindex.ERATELIMIT, "secondary rate limit exceeded")
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return statusError(respErr.Response.StatusCode, respErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return docindex.Errorf(docindex.EUNAVAILABLE, "request aborted: %v", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return docindex.Errorf(docindex.EUNAVAILABLE, "request timed out")
		}
		return docindex.Errorf(docindex.EUNAVAILABLE, "request failed: %v", urlErr.Err)
	}

	return err
}

// statusError maps a non-2xx response status to an application error.
func statusError(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return docindex.Errorf(docindex.EUNAUTHORIZED, "HTTP %d: %s", status, message)
	case status == http.StatusNotFound, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return docindex.Errorf(docindex.ENOTFOUND, "HTTP %d: %s", status, message)
	case status == http.StatusTooManyRequests:
		return docindex.Errorf(docindex.ERATELIMIT, "HTTP %d: %s", status, message)
	case status >= 500:
		return docindex.Errorf(docindex.EUNAVAILABLE, "HTTP %d: %s", status, message)
	default:
		return docindex.Errorf(docindex.EINTERNAL, "HTTP %d: %s", status, message)
	}
}
