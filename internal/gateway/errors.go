package gateway

import "errors"

// providerNotFoundError signals a request addressed to an unregistered
// provider name.
type providerNotFoundError struct{ name string }

func (e providerNotFoundError) Error() string { return "provider not found: " + e.name }

func ErrProviderNotFound(name string) error { return providerNotFoundError{name: name} }

// IsProviderNotFound reports whether err names an unknown provider.
func IsProviderNotFound(err error) bool {
	var e providerNotFoundError
	return errors.As(err, &e)
}
