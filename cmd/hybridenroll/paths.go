package main

import (
	"path/filepath"
	"runtime"
)

const (
	defaultRegistryPath = `SOFTWARE\Kolide\HybridEnroll`

	flagStoreRegistry = "registry"
	flagStoreBbolt    = "bbolt"
)

func defaultRootDirectory() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\ProgramData\Kolide\HybridEnroll`
	case "darwin":
		return "/var/kolide-hybridenroll"
	default:
		return filepath.Join("/var", "lib", "kolide-hybridenroll")
	}
}

// The registry survives reinstalls of the binary and is where an image build
// drops the join purpose marker, so it is preferred wherever it exists.
func defaultFlagStore() string {
	if runtime.GOOS == "windows" {
		return flagStoreRegistry
	}
	return flagStoreBbolt
}
