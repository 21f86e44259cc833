// Package discover advertises a running host on the local network and
// lets joining participants find it without typing an address.
package discover

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/mdns"
)

const serviceType = "_coboard._tcp"

// Advertise announces this host's whiteboard port over mDNS. The
// returned server must be shut down when hosting stops.
func Advertise(port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("discover: hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(
		host,
		serviceType,
		"", // default ".local" domain
		"", // default OS hostname
		port,
		nil, // auto-detect IPs
		[]string{"coboard"},
	)
	if err != nil {
		return nil, fmt.Errorf("discover: create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discover: start mDNS server: %w", err)
	}
	return server, nil
}

// Browse runs one mDNS lookup and invokes found for each whiteboard
// host it hears from, as "host:port".
func Browse(found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(e.AddrV4.String() + ":" + strconv.Itoa(e.Port))
		}
	}()
	return mdns.Lookup(serviceType, entries)
}
