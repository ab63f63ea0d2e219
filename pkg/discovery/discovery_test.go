package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToService(t *testing.T) {
	tests := []struct {
		name  string
		entry ServiceEntry
		want  Service
	}{
		{
			name: "AllFields",
			entry: ServiceEntry{
				Instance: "purifier-bedroom",
				Service:  ServiceTypeCoAP,
				Domain:   Domain,
				Host:     "purifier-bedroom.local.",
				Port:     5683,
				Text: []string{
					"model=AC2729",
					"id=a1b2c3d4",
					"name=Bedroom",
				},
				Addrs: []string{"192.168.1.50", "fe80::1"},
			},
			want: Service{
				InstanceName: "purifier-bedroom",
				Host:         "purifier-bedroom.local.",
				Port:         5683,
				Addresses:    []string{"192.168.1.50", "fe80::1"},
				ModelID:      "AC2729",
				DeviceID:     "a1b2c3d4",
				Name:         "Bedroom",
			},
		},
		{
			name: "NoTXTRecords",
			entry: ServiceEntry{
				Instance: "purifier",
				Host:     "purifier.local.",
				Port:     5683,
				Addrs:    []string{"10.0.0.2"},
			},
			want: Service{
				InstanceName: "purifier",
				Host:         "purifier.local.",
				Port:         5683,
				Addresses:    []string{"10.0.0.2"},
			},
		},
		{
			name: "UnknownTXTKeysIgnored",
			entry: ServiceEntry{
				Instance: "purifier",
				Text:     []string{"model=AC3033", "fw=1.0.7", "flag"},
			},
			want: Service{
				InstanceName: "purifier",
				ModelID:      "AC3033",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.entry.ToService()
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestServiceAddr(t *testing.T) {
	svc := &Service{
		Host:      "purifier.local.",
		Addresses: []string{"192.168.1.50", "fe80::1"},
	}
	assert.Equal(t, "192.168.1.50", svc.Addr())

	svc.Addresses = nil
	assert.Equal(t, "purifier.local", svc.Addr())
}

func TestAwaitServiceMatchesDeviceID(t *testing.T) {
	results := make(chan *Service, 2)
	results <- &Service{InstanceName: "purifier-hall", DeviceID: "ffff0000"}
	results <- &Service{InstanceName: "purifier-bedroom", DeviceID: "a1b2c3d4"}

	svc, err := awaitService(context.Background(), results, "a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, "purifier-bedroom", svc.InstanceName)
}

func TestAwaitServiceMatchesInstanceName(t *testing.T) {
	results := make(chan *Service, 1)
	results <- &Service{InstanceName: "purifier-bedroom", DeviceID: "a1b2c3d4"}

	svc, err := awaitService(context.Background(), results, "purifier-bedroom")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4", svc.DeviceID)
}

func TestAwaitServiceExhausted(t *testing.T) {
	results := make(chan *Service, 1)
	results <- &Service{InstanceName: "purifier-hall", DeviceID: "ffff0000"}
	close(results)

	_, err := awaitService(context.Background(), results, "a1b2c3d4")
	assert.ErrorContains(t, err, "not found")
}

func TestAwaitServiceContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := awaitService(ctx, make(chan *Service), "a1b2c3d4")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"model=AC2889", "name=Living Room", "empty=", "flag", ""})
	assert.Equal(t, map[string]string{
		"model": "AC2889",
		"name":  "Living Room",
		"empty": "",
		"flag":  "",
	}, got)
}

func TestMergeAddresses(t *testing.T) {
	merged := mergeAddresses(
		[]string{"192.168.1.50"},
		[]string{"192.168.1.50", "fe80::1"},
	)
	assert.Equal(t, []string{"192.168.1.50", "fe80::1"}, merged)

	// Merging into an empty list keeps order of the added addresses.
	merged = mergeAddresses(nil, []string{"10.0.0.2", "10.0.0.2", "10.0.0.3"})
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.3"}, merged)
}

func TestRemoveAddresses(t *testing.T) {
	remaining := removeAddresses(
		[]string{"192.168.1.50", "fe80::1", "10.0.0.2"},
		[]string{"fe80::1", "10.0.0.2"},
	)
	assert.Equal(t, []string{"192.168.1.50"}, remaining)

	remaining = removeAddresses([]string{"192.168.1.50"}, []string{"192.168.1.50"})
	assert.Empty(t, remaining)
}
