package zipfactory

import (
	"os"
	"strconv"
)

// NativeEnv names the environment variable that can switch the native engine
// off for the process ("0", "false", ...).
const NativeEnv = "ZIPFACTORY_NATIVE"

// NativeAvailable reports whether the native engine may be used. It reads the
// environment on every call.
func NativeAvailable() bool {
	value, ok := os.LookupEnv(NativeEnv)
	if !ok || value == "" {
		return true
	}
	enabled, err := strconv.ParseBool(value)
	if err != nil {
		return true
	}
	return enabled
}
