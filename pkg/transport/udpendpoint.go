// Package transport provides the UDP multicast socket adapter that feeds
// raw datagrams into a receiver.Core.
package transport

import (
	"net"
	"strconv"
)

// Endpoint names a multicast (or unicast) group and port to join.
type Endpoint struct {
	// Interface, if set, pins the join to one network interface by name
	// (e.g. "eth0"). Empty lets the kernel pick.
	Interface string

	// GroupAddress is the destination multicast address, e.g. "224.0.0.1".
	GroupAddress string

	Port uint16
}

// NewEndpoint builds an Endpoint.
func NewEndpoint(iface string, group string, port uint16) Endpoint {
	return Endpoint{Interface: iface, GroupAddress: group, Port: port}
}

// GroupAddr returns the "ip:port" form used to resolve a *net.UDPAddr.
func (e Endpoint) GroupAddr() string {
	return net.JoinHostPort(e.GroupAddress, strconv.Itoa(int(e.Port)))
}

// ResolveGroup resolves the endpoint's group address.
func (e Endpoint) ResolveGroup() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", e.GroupAddr())
}
