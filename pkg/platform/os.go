// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// windowsExeSuffix is appended to compiled executables on Windows.
const windowsExeSuffix = ".exe"

// ExeSuffix returns the executable file suffix for the given GOOS value.
// It is empty everywhere except Windows.
func ExeSuffix(goos string) string {
	if goos == Windows {
		return windowsExeSuffix
	}
	return ""
}

// HostExeSuffix returns the executable suffix of the running platform.
func HostExeSuffix() string {
	return ExeSuffix(runtime.GOOS)
}

// ExecutableName appends the platform executable suffix to name.
func ExecutableName(name, goos string) string {
	return name + ExeSuffix(goos)
}

// PathListSeparator returns the PATH list separator for the given GOOS value.
func PathListSeparator(goos string) string {
	if goos == Windows {
		return ";"
	}
	return ":"
}
