package mpr

// Status byte bits. Other bits are reserved.
const (
	statusBusy       = 0x20
	statusIntegrity  = 0x04
	statusSaturation = 0x01
)

// CheckStatus classifies a status byte. When several flags are set the
// first of busy, integrity, saturation wins.
func CheckStatus(status byte) error {
	if status&statusBusy != 0 {
		return ErrBusy
	}
	if status&statusIntegrity != 0 {
		return ErrIntegrity
	}
	if status&statusSaturation != 0 {
		return ErrSaturation
	}
	return nil
}
