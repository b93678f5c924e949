package discovery

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestEntryAddr(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
		ok    bool
	}{
		{"nil", nil, "", false},
		{"no address", &mdns.ServiceEntry{Port: 8080}, "", false},
		{"no port", &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2)}, "", false},
		{"ok", &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2), Port: 8080}, "10.0.0.2:8080", true},
	}
	for _, tt := range tests {
		got, ok := entryAddr(tt.entry)
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s: entryAddr = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}
