// ABOUTME: Maps provider errors onto retryable and permanent failure kinds
// ABOUTME: 408, 429 and 5xx are transient; 401, 403 and 404 stop the run
package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/comment-classifier/internal/models"
)

// ClassifyError decides how the Classifier treats a failed provider call
func ClassifyError(err error) models.FailureKind {
	if err == nil {
		return models.FailureNone
	}
	if errors.Is(err, context.Canceled) {
		return models.FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.FailureTransient
	}
	if models.IsKind(err, models.ErrConfiguration) {
		return models.FailurePermanent
	}

	if code, ok := statusCode(err); ok {
		return classifyStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return models.FailureTransient
	}

	// unknown errors are assumed to be network hiccups
	return models.FailureTransient
}

func statusCode(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	if code, ok := geminiStatus(err); ok && code != 0 {
		return code, true
	}
	return 0, false
}

func classifyStatus(code int) models.FailureKind {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return models.FailureTransient
	case code >= 500:
		return models.FailureTransient
	case code >= 400:
		return models.FailurePermanent
	default:
		return models.FailureTransient
	}
}

// errorKind decides what a failed call means beyond its chunk. Rejected
// credentials and unknown models (401, 403, 404) fail every later call too
// and stop the run; any other rejection (400, 413, content policy) only makes
// this chunk unparseable.
func errorKind(err error, kind models.FailureKind) models.ErrorKind {
	if kind != models.FailurePermanent {
		return models.ErrTransient
	}
	if models.IsKind(err, models.ErrConfiguration) {
		return models.ErrConfiguration
	}
	if code, ok := statusCode(err); ok {
		switch code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return models.ErrConfiguration
		}
	}
	return models.ErrInput
}
