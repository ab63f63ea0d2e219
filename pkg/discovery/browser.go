package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browse behavior.
type BrowserConfig struct {
	// Interface selects one network interface by name. Empty means all
	// interfaces.
	Interface string

	// Logger receives browse diagnostics. Nil disables it.
	Logger *slog.Logger
}

// Browser finds purifiers on the local network.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse searches for purifiers until ctx is cancelled. Services are
// aggregated by instance name: addresses from multiple interfaces are
// combined into a single entry, and each instance is emitted once. The
// returned channel closes when browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *Service, error) {
	out := make(chan *Service)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(out)

		services := make(map[string]*Service)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToService(entry)

				existing, found := services[svc.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}

				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				existing, found := services[entry.Instance]
				if !found {
					continue
				}
				existing.Addresses = removeAddresses(existing.Addresses, entryAddresses(entry))
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := zeroconf.Browse(ctx, ServiceTypeCoAP, Domain, entries, removed, opts...); err != nil && b.config.Logger != nil {
			b.config.Logger.Error("mdns browse failed", "error", err)
		}
	}()

	return out, nil
}

// Find searches for a purifier with the given device ID or instance
// name. Returns when found or when ctx ends.
func (b *Browser) Find(ctx context.Context, id string) (*Service, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	return awaitService(ctx, results, id)
}

// awaitService drains results until a service matches the device ID or
// instance name.
func awaitService(ctx context.Context, results <-chan *Service, id string) (*Service, error) {
	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return nil, fmt.Errorf("device %q not found", id)
			}
			if svc.DeviceID == id || svc.InstanceName == id {
				return svc, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("device %q not found: %w", id, ctx.Err())
		}
	}
}

func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToService converts a zeroconf entry to a Service.
func entryToService(entry *zeroconf.ServiceEntry) *Service {
	e := ServiceEntry{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    entryAddresses(entry),
	}
	return e.ToService()
}

// entryAddresses collects every address of a zeroconf entry.
func entryAddresses(entry *zeroconf.ServiceEntry) []string {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return addrs
}
