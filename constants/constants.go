// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: constants.go — Hot-path sizing & compile-time tunables
//
// Purpose:
//   - Fixes every buffer and table the hot thread touches at compile time.
//   - Runtime-tunable values (thresholds, endpoints, timeouts) live in config.
//
// Notes:
//   - Everything sized here is allocated exactly once, before Thread 0 starts.
//   - Power-of-two sizes where the consumer masks indices.
//
// ⚠️ No runtime logic here; all values must be compile-time resolvable
// ─────────────────────────────────────────────────────────────────────────────

package constants

// ───────────────────────────── Order Book ─────────────────────────────────

const (
	// BookDepth is the number of price levels kept per side.
	// Levels past this depth are dropped on insert, never stored.
	BookDepth = 20

	// MaxLevelChanges caps the level updates extracted from one frame per side.
	// Bybit depth-200 snapshots stay below this; a frame above it is malformed.
	MaxLevelChanges = 256
)

// ───────────────────────────── Ring Channel ───────────────────────────────

const (
	// DefaultRingSize is the telemetry ring capacity when config leaves it unset.
	// 4096 × 64 B slots = 256 KiB, comfortably inside L2 on the cold core.
	DefaultRingSize = 1 << 12

	// RecorderBatch is the number of events the cold thread groups per flush.
	RecorderBatch = 256
)

// ─────────────────────────── Transport Buffers ───────────────────────────

const (
	// ReadBufferSize is the per-connection plaintext buffer frames decode from.
	// 1 MiB holds the largest depth snapshot with room to compact.
	ReadBufferSize = 1 << 20

	// CipherBufferSize bounds the encrypted bytes a connection may hold back
	// when the socket send buffer is full.
	CipherBufferSize = 256 << 10

	// HandshakeBufferSize bounds the HTTP upgrade response.
	HandshakeBufferSize = 4 << 10

	// UpgradeRequestSize bounds the prebuilt HTTP upgrade request.
	UpgradeRequestSize = 1 << 10

	// SocketBufferSize is applied to SO_RCVBUF / SO_SNDBUF.
	SocketBufferSize = 512 << 10
)

// ─────────────────────────── Order Path Buffers ──────────────────────────

const (
	// OrderBufferSize is the scratch buffer one order/cancel body is rendered into.
	// Bodies are ~350 B; 512 B keeps ErrBufferTooSmall off the steady-state path.
	OrderBufferSize = 512

	// OutboxSize is the per-stream buffer holding frames not yet accepted by
	// the transport (partial writes resume from here).
	OutboxSize = 16 << 10

	// MaxOrders is the number of order slots the tracker keeps live at once.
	MaxOrders = 64

	// ClientIDPrefixLen is the length of the session prefix in client order ids.
	ClientIDPrefixLen = 8
)

// ─────────────────────────── Memory Guardrails ─────────────────────────────

const (
	// HeapSoftLimit triggers a manual GC pass from the cold thread.
	HeapSoftLimit = 128 << 20 // 128 MiB

	// HeapHardLimit is reported as a leak once exceeded.
	HeapHardLimit = 512 << 20 // 512 MiB
)
