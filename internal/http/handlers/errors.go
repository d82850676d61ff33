package handlers

import (
	"errors"
	"fmt"
)

var errNilID = errors.New("id must not be the nil uuid")

func errInvalidPage(key, raw string) error {
	return fmt.Errorf("%s must be a positive integer, got %q", key, raw)
}
