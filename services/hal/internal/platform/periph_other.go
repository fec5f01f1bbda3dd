// services/hal/internal/platform/periph_other.go
//go:build !linux

package platform

import "errors"

// OpenLinuxI2C is only available on Linux hosts.
func OpenLinuxI2C(map[string]string) (*I2CFactory, func() error, error) {
	return nil, nil, errors.New("platform: hardware i2c requires linux")
}
