package errx

import (
	"net/http"
)

// WrapStore wraps a catalog store error with a consistent status and message.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, StoreErrorMessage)
}
