package discovery

// MsgType discriminates a presence packet (spec.md §4.3/§6).
type MsgType string

const (
	MsgHello MsgType = "Hello"
	MsgBye   MsgType = "Bye"
)

// PeerInfo is the payload of a presence packet.
type PeerInfo struct {
	DeviceID  string `json:"device_id"`
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	PublicKey string `json:"public_key,omitempty"`
	IsOnline  bool   `json:"is_online"`
}

// Packet is the wire format: {msg_type, peer}. Outbound ip_address is
// always advertised as 0.0.0.0 — the receiver substitutes the UDP source
// address as authoritative.
type Packet struct {
	MsgType MsgType  `json:"msg_type"`
	Peer    PeerInfo `json:"peer"`
}

// maxPacketSize bounds inbound reads per spec.md §6 ("Packets ≤ 4 KiB").
const maxPacketSize = 4096
