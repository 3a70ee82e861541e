package predicate

// SizeUnit scales a size value to bytes.
//
// Decimal units use power-of-1000 scaling (SI prefixes); binary units use
// power-of-1024. The backend stores sizes as raw byte counts, so the choice
// only affects how caller-supplied values are converted. Both families are
// exposed so the caller picks one explicitly instead of guessing.
type SizeUnit int64

// Decimal (power-of-1000) size units.
const (
	Bytes     SizeUnit = 1
	Kilobytes SizeUnit = 1000
	Megabytes SizeUnit = 1000 * Kilobytes
	Gigabytes SizeUnit = 1000 * Megabytes
	Terabytes SizeUnit = 1000 * Gigabytes
	Petabytes SizeUnit = 1000 * Terabytes
)

// Binary (power-of-1024) size units.
const (
	Kibibytes SizeUnit = 1024
	Mebibytes SizeUnit = 1024 * Kibibytes
	Gibibytes SizeUnit = 1024 * Mebibytes
	Tebibytes SizeUnit = 1024 * Gibibytes
	Pebibytes SizeUnit = 1024 * Tebibytes
)

// Size converts a value in the given unit to a byte count.
//
// Fractional results are truncated toward zero.
func Size(v float64, unit SizeUnit) int64 {
	return int64(v * float64(unit))
}

// DurationUnit scales a duration value to seconds, the native unit for
// duration attributes.
type DurationUnit float64

// Duration units.
const (
	Seconds DurationUnit = 1
	Minutes DurationUnit = 60
	Hours   DurationUnit = 3600
	Days    DurationUnit = 86400
	Weeks   DurationUnit = 7 * 86400
)

// Duration converts a value in the given unit to seconds.
func Duration(v float64, unit DurationUnit) float64 {
	return v * float64(unit)
}
