// Package hostcheck validates host names before any connection is attempted.
package hostcheck

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalidHost is returned for names that are neither an IP address nor an RFC 1123 host name.
var ErrInvalidHost = errors.New("invalid host")

// Validate reports whether hostname is an IP literal or an RFC 1123 host name.
func Validate(hostname string) error {
	if strings.TrimSpace(hostname) == "" {
		return fmt.Errorf("%w: hostname is required", ErrInvalidHost)
	}

	if err := validate.Var(hostname, "max=253,hostname_rfc1123|ip"); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "max" {
			return fmt.Errorf("%w: %q is longer than 253 characters", ErrInvalidHost, hostname)
		}
		return fmt.Errorf("%w: %q", ErrInvalidHost, hostname)
	}

	return nil
}
