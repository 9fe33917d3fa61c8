package utils

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// PingService checks that a TCP endpoint is reachable
func PingService(host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingSMTP checks if the mail relay is reachable
func PingSMTP(host string, port int) error {
	return PingService(host, port, 1500*time.Millisecond)
}
