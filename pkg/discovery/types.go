// Package discovery locates air purifiers on the local network via
// mDNS. Purifiers advertise a CoAP service with their model and device
// identity in TXT records.
package discovery

import (
	"strings"
	"time"
)

const (
	// ServiceTypeCoAP is the mDNS service type purifiers advertise.
	ServiceTypeCoAP = "_coap._udp"

	// Domain is the mDNS browse domain.
	Domain = "local."

	// BrowseTimeout is the default timeout for browse operations.
	BrowseTimeout = 10 * time.Second
)

// TXT record keys used in purifier advertisements.
const (
	txtKeyModel    = "model"
	txtKeyDeviceID = "id"
	txtKeyName     = "name"
)

// Service is one discovered purifier.
type Service struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the advertised hostname.
	Host string

	// Port is the CoAP port.
	Port uint16

	// Addresses holds every address the service was seen on,
	// aggregated across interfaces.
	Addresses []string

	// ModelID is the device model from the TXT records, if present.
	ModelID string

	// DeviceID is the device identity from the TXT records, if present.
	DeviceID string

	// Name is the user-assigned device name, if present.
	Name string
}

// Addr returns the best address to dial, preferring the first
// aggregated address and falling back to the hostname.
func (s *Service) Addr() string {
	if len(s.Addresses) > 0 {
		return s.Addresses[0]
	}
	return strings.TrimSuffix(s.Host, ".")
}

// ServiceEntry is raw mDNS service entry data, decoupled from the
// resolver's wire types. Browse converts resolver entries into this
// form before interpretation.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToService interprets the entry's TXT records as a purifier
// advertisement.
func (e *ServiceEntry) ToService() *Service {
	txt := parseTXT(e.Text)

	return &Service{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    e.Addrs,
		ModelID:      txt[txtKeyModel],
		DeviceID:     txt[txtKeyDeviceID],
		Name:         txt[txtKeyName],
	}
}

// parseTXT parses "key=value" TXT strings into a map. Entries without
// an equals sign are treated as flags with an empty value.
func parseTXT(txt []string) map[string]string {
	records := make(map[string]string, len(txt))
	for _, entry := range txt {
		if entry == "" {
			continue
		}
		key, value, _ := strings.Cut(entry, "=")
		records[key] = value
	}
	return records
}

// mergeAddresses adds new addresses to the existing list, avoiding
// duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses filters the given addresses out of the list.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
