// Package units provides shared constants and validation for length units
package units

// Unit constants
const (
	Meters = "m"
	Feet   = "ft"
	Km     = "km"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Meters, Feet, Km}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, ft, km"
}

// ConvertLength converts a length in meters to the target units.
// Grids and the catalog store meters.
func ConvertLength(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case Feet:
		return meters / 0.3048
	case Km:
		return meters / 1000
	default:
		return meters
	}
}
