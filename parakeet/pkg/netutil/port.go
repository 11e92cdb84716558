package netutil

import (
	"fmt"
	"net"

	"github.com/parakeet-ai/parakeet-go/parakeet/pkg/constants"
)

// IsPortAvailable checks if a port can be bound on host.
func IsPortAvailable(host string, port int) bool {
	address := fmt.Sprintf("%s:%d", host, port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailablePort finds the next bindable port starting from startPort,
// scanning up to the dev server port range end.
func FindAvailablePort(host string, startPort int) (int, error) {
	if startPort <= 0 {
		startPort = constants.DefaultPortStart
	}
	for port := startPort; port <= constants.DefaultPortEnd; port++ {
		if IsPortAvailable(host, port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available ports found in range %d-%d", startPort, constants.DefaultPortEnd)
}
