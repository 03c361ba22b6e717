package cloud

import (
	"errors"
	"fmt"

	"promptd/internal/provider"
)

// noCredentialError signals the secret store has no key for this provider.
type noCredentialError struct{ key string }

func (e noCredentialError) Error() string { return "no credential stored under " + e.key }

func ErrNoCredential(key string) error { return noCredentialError{key: key} }

// IsNoCredential reports whether err indicates a missing API credential.
func IsNoCredential(err error) bool {
	var e noCredentialError
	return errors.As(err, &e)
}

// insecureEndpointError signals a non-https endpoint. Rejected before any
// network activity.
type insecureEndpointError struct{ endpoint string }

func (e insecureEndpointError) Error() string {
	return "insecure endpoint (https required): " + e.endpoint
}

func ErrInsecureEndpoint(endpoint string) error { return insecureEndpointError{endpoint: endpoint} }

// IsInsecureEndpoint reports whether err is an https-scheme rejection.
func IsInsecureEndpoint(err error) bool {
	var e insecureEndpointError
	return errors.As(err, &e)
}

// invalidEndpointError signals a malformed endpoint URL.
type invalidEndpointError struct {
	endpoint string
	reason   string
}

func (e invalidEndpointError) Error() string {
	return fmt.Sprintf("invalid endpoint URL %q: %s", e.endpoint, e.reason)
}

func ErrInvalidEndpoint(endpoint, reason string) error {
	return invalidEndpointError{endpoint: endpoint, reason: reason}
}

// IsInvalidEndpoint reports whether err is a malformed endpoint URL.
func IsInvalidEndpoint(err error) bool {
	var e invalidEndpointError
	return errors.As(err, &e)
}

// httpError carries a non-200 response status and its (truncated) body.
// Status 0 marks a transport-level failure with no HTTP response.
type httpError struct {
	status int
	body   string
}

func (e httpError) Error() string {
	if e.status == 0 {
		return "request failed: " + e.body
	}
	return fmt.Sprintf("http %d: %s", e.status, e.body)
}

func ErrHTTP(status int, body string) error { return httpError{status: status, body: body} }

// IsHTTPError reports whether err carries an HTTP response status.
func IsHTTPError(err error) bool {
	var e httpError
	return errors.As(err, &e)
}

// HTTPStatus returns the status code carried by an HTTP error.
func HTTPStatus(err error) (int, bool) {
	var e httpError
	if errors.As(err, &e) {
		return e.status, true
	}
	return 0, false
}

// HTTPBody returns the truncated response body carried by an HTTP error.
func HTTPBody(err error) (string, bool) {
	var e httpError
	if errors.As(err, &e) {
		return e.body, true
	}
	return "", false
}

// IsCredentialRejected reports whether the upstream answered 401.
func IsCredentialRejected(err error) bool {
	s, ok := HTTPStatus(err)
	return ok && s == 401
}

// IsRateLimited reports whether the upstream answered 429.
func IsRateLimited(err error) bool {
	s, ok := HTTPStatus(err)
	return ok && s == 429
}

// IsUpstreamError reports whether the upstream answered 5xx.
func IsUpstreamError(err error) bool {
	s, ok := HTTPStatus(err)
	return ok && s >= 500 && s <= 599
}

// invalidResponseError signals a body that does not parse as the expected
// chat-completion shape.
type invalidResponseError struct{ reason string }

func (e invalidResponseError) Error() string { return "invalid response: " + e.reason }

func ErrInvalidResponse(reason string) error { return invalidResponseError{reason: reason} }

// IsInvalidResponse reports whether err is a malformed response body.
func IsInvalidResponse(err error) bool {
	var e invalidResponseError
	return errors.As(err, &e)
}

// noContentError signals a well-formed response with an absent or empty
// choices[0].message.content.
type noContentError struct{}

func (noContentError) Error() string { return "no content in response" }

func ErrNoContent() error { return noContentError{} }

// IsNoContent reports whether err indicates an empty completion.
func IsNoContent(err error) bool {
	var e noContentError
	return errors.As(err, &e)
}

// abortedError signals a request cancelled via Abort or context
// cancellation. It matches provider.ErrAborted through errors.Is.
type abortedError struct{}

func (abortedError) Error() string        { return "request aborted" }
func (abortedError) Is(target error) bool { return target == provider.ErrAborted }

func ErrRequestAborted() error { return abortedError{} }

// IsAborted reports whether err is a cancelled cloud request.
func IsAborted(err error) bool {
	var e abortedError
	return errors.As(err, &e)
}
