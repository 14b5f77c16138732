package registry

// deviceIDLength is the fixed length of a DeviceID.
const deviceIDLength = 3

// ValidDeviceID reports whether id is exactly three ASCII digits.
func ValidDeviceID(id string) bool {
	if len(id) != deviceIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
