package discovery

import (
	"net"
	"testing"
)

func TestBroadcastForSubnet(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ip   string
		mask string
		want string
	}{
		{"192.168.1.42", "255.255.255.0", "192.168.1.255"},
		{"10.0.0.5", "255.0.0.0", "10.255.255.255"},
	}

	for _, c := range cases {
		ip := net.ParseIP(c.ip).To4()
		mask := net.IPMask(net.ParseIP(c.mask).To4())
		got := broadcastForSubnet(ip, mask)
		if got != c.want {
			t.Errorf("broadcastForSubnet(%s, %s) = %q, want %q", c.ip, c.mask, got, c.want)
		}
	}
}

func TestDedupePreservesOrder(t *testing.T) {
	t.Parallel()

	got := dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("dedupe() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dedupe() = %v, want %v", got, want)
		}
	}
}
