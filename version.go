package hostvm

import (
	"github.com/hostvm/hostvm/internal/host"
)

// InterfaceVersion is the version of the host function surface this build
// publishes. Guest modules must export the matching
// "interface_version_<N>" marker to link.
const InterfaceVersion = host.InterfaceVersion
