package mqtt

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NetworkIdentity returns the MAC and IP address of the interface that
// routes to the broker, as published by the Homie firmware extension.
//
// The IP is the local address of a UDP socket aimed at the broker; no
// packet is sent. The MAC is upper-case and colon separated, and is empty
// for interfaces without a hardware address such as loopback.
//
// Returns:
//   - mac: Hardware address, e.g. "DE:AD:BE:EF:00:01"
//   - ip: Local IP address, e.g. "192.168.1.20"
//   - error: If the route or interface cannot be determined
func (c *Client) NetworkIdentity() (mac, ip string, err error) {
	address := net.JoinHostPort(c.cfg.Broker.Host, strconv.Itoa(c.cfg.Broker.Port))

	conn, err := c.dial("udp", address)
	if err != nil {
		return "", "", fmt.Errorf("resolving route to %s: %w", address, err)
	}
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	conn.Close()
	if !ok {
		return "", "", fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}

	ip = local.IP.String()

	iface, err := interfaceFor(local.IP)
	if err != nil {
		return "", ip, err
	}
	return strings.ToUpper(iface.HardwareAddr.String()), ip, nil
}

// interfaceFor returns the network interface that owns ip.
func interfaceFor(ip net.IP) (net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return net.Interface{}, fmt.Errorf("listing interfaces: %w", err)
	}

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(ip) {
				return iface, nil
			}
		}
	}

	return net.Interface{}, fmt.Errorf("no interface owns %s", ip)
}
