package transport

// State is the connection lifecycle.
//
//	Idle → Connecting → TLSHandshaking → ProtocolUpgrading → Streaming
//	                                                         ↓
//	                                                  Closing | Faulted
//
// A Faulted connection accepts only Reset. Closing drains pending cipher
// bytes, then falls back to Idle.
type State uint8

const (
	Idle State = iota
	Connecting
	TLSHandshaking
	ProtocolUpgrading
	Streaming
	Closing
	Faulted
)

var stateNames = [...]string{
	Idle:              "idle",
	Connecting:        "connecting",
	TLSHandshaking:    "tls_handshaking",
	ProtocolUpgrading: "protocol_upgrading",
	Streaming:         "streaming",
	Closing:           "closing",
	Faulted:           "faulted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
