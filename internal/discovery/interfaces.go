package discovery

import "net"

// globalBroadcast is the sentinel global broadcast address, always
// announced to once per tick regardless of interface enumeration.
const globalBroadcast = "255.255.255.255"

// broadcastAddresses computes, for every non-loopback IPv4 interface, the
// per-interface subnet broadcast address ip | ~netmask, skipping any
// address that coincides with the global broadcast sentinel to avoid a
// double-send (spec.md §4.3 "Announce").
func broadcastAddresses() []string {
	addrs := []string{globalBroadcast}

	ifaces, err := net.Interfaces()
	if err != nil {
		return addrs
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, a := range ifAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil {
				continue
			}

			bcast := broadcastForSubnet(ip4, ipNet.Mask)
			if bcast == "" || bcast == globalBroadcast {
				continue
			}
			addrs = append(addrs, bcast)
		}
	}

	return dedupe(addrs)
}

// broadcastForSubnet computes ip | ~mask for an IPv4 address and mask.
func broadcastForSubnet(ip net.IP, mask net.IPMask) string {
	if len(ip) != 4 || len(mask) != 4 {
		return ""
	}
	out := make(net.IP, 4)
	for i := range out {
		out[i] = ip[i] | ^mask[i]
	}
	return out.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
