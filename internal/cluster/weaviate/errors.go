package weaviate

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/koustreak/clusterdash/internal/errs"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/fault"
)

// mapError translates a Weaviate SDK error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	var clientErr *fault.WeaviateClientError
	if errors.As(err, &clientErr) {
		switch clientErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
		case http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		if clientErr.DerivedFromError != nil && isTimeout(clientErr.DerivedFromError) {
			return errs.Wrap(errs.ErrKindTimeout, msg, err)
		}
		if clientErr.IsUnexpectedStatusCode {
			return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
		}
	}

	if isTimeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// Anything else: DNS, refused connection, TLS
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
