package services

import (
	"fmt"

	"signal-relay/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// deviceIdentity carries the constraints on client-supplied device
// identifiers: required, bounded, and free of ':' which is the store's key
// separator.
type deviceIdentity struct {
	DeviceID string `validate:"required,max=128,excludesall=:"`
}

func validDeviceID(deviceID string) error {
	if err := validate.Struct(deviceIdentity{DeviceID: deviceID}); err != nil {
		return fmt.Errorf("%w: device_id: %v", errors.ErrValidation, err)
	}
	return nil
}
