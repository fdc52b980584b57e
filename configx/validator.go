package configx

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ListenAddrTag validates "host:port" listen addresses. The host may be
// empty; the port must be numeric.
const ListenAddrTag = "listen_addr"

// ValidatorOption configures the validator.
type ValidatorOption func(*validator.Validate)

// NewValidator returns a validator with required-struct checks and the
// ListenAddrTag rule registered.
func NewValidator(opts ...ValidatorOption) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation(ListenAddrTag, func(fl validator.FieldLevel) bool {
		return validListenAddr(fl.Field().String())
	})
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateStruct checks target's validate tags. A nil v uses NewValidator.
func ValidateStruct(v *validator.Validate, target any) error {
	if v == nil {
		v = NewValidator()
	}
	if err := v.Struct(target); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func validListenAddr(addr string) bool {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}
