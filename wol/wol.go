// Package wol wakes sleeping media servers with magic packets.
package wol

import (
	"fmt"
	"net"
	"strings"
)

// MagicPacket builds the payload for the given MAC address: six 0xFF
// bytes followed by the address repeated sixteen times.
func MagicPacket(mac string) ([]byte, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(mac))
	if err != nil {
		return nil, fmt.Errorf("invalid MAC address %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return nil, fmt.Errorf("unsupported MAC address length %d for %q", len(hw), mac)
	}
	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}
	return packet, nil
}

// Wake broadcasts a magic packet for each MAC address. Packets for
// addresses that fail to send do not stop the rest; the first error is
// returned once all sends are attempted.
func Wake(macs []string) error {
	var firstErr error
	for _, mac := range macs {
		if err := send(mac); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func send(mac string) error {
	packet, err := MagicPacket(mac)
	if err != nil {
		return err
	}
	conn, err := net.Dial("udp", "255.255.255.255:9")
	if err != nil {
		return fmt.Errorf("failed to open broadcast socket: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("failed to send magic packet to %s: %w", mac, err)
	}
	return nil
}
