// ════════════════════════════════════════════════════════════════════════════════════════════════
// Outbound Request Formatters
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Wire Codec / Requests
//
// Description:
//   Renders trade stream requests directly into a caller buffer:
//
//     {"reqId":"<id>","header":{"X-BAPI-TIMESTAMP":"<ms>","X-BAPI-RECV-WINDOW":"<ms>"},
//      "op":"order.create","args":[{"symbol":"BTCUSDT","side":"Buy","orderType":"Limit",
//      "qty":"1","price":"100.05","category":"linear","timeInForce":"IOC","orderLinkId":"<id>"}]}
//
//   Numbers go through strconv.Append* into stack scratch, then into dst.
//   A request that does not fit returns ErrBufferTooSmall and n = 0; dst
//   contents are then undefined.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package codec

import (
	"strconv"

	"tick2trade/order"
)

// Venue describes how orders for one instrument are written.
type Venue struct {
	Symbol        string
	Category      string // linear | spot | inverse
	OrderType     string // Limit | Market
	TimeInForce   string // IOC | FOK | GTC | PostOnly
	PriceDecimals int
	QtyDecimals   int
	RecvWindowMs  int64
}

// writer fills a fixed buffer and latches overflow.
type writer struct {
	b    []byte
	n    int
	over bool
}

func (w *writer) str(s string) {
	if w.over || w.n+len(s) > len(w.b) {
		w.over = true
		return
	}
	w.n += copy(w.b[w.n:], s)
}

func (w *writer) raw(p []byte) {
	if w.over || w.n+len(p) > len(w.b) {
		w.over = true
		return
	}
	w.n += copy(w.b[w.n:], p)
}

func (w *writer) i64(v int64) {
	var scratch [24]byte
	w.raw(strconv.AppendInt(scratch[:0], v, 10))
}

func (w *writer) f64(v float64, decimals int) {
	var scratch [40]byte
	w.raw(strconv.AppendFloat(scratch[:0], v, 'f', decimals, 64))
}

func (w *writer) clientID(prefix []byte, seq uint64) {
	var scratch [48]byte
	w.raw(AppendClientID(scratch[:0], prefix, seq))
}

func (w *writer) header(tsMs, recvWindowMs int64) {
	w.str(`"header":{"X-BAPI-TIMESTAMP":"`)
	w.i64(tsMs)
	w.str(`","X-BAPI-RECV-WINDOW":"`)
	w.i64(recvWindowMs)
	w.str(`"},`)
}

func (w *writer) done() (int, error) {
	if w.over {
		return 0, ErrBufferTooSmall
	}
	return w.n, nil
}

// FormatOrder writes an order.create request for one intent.
func FormatOrder(dst []byte, v *Venue, side order.Side, price, qty float64, prefix []byte, seq uint64, tsMs int64) (int, error) {
	w := writer{b: dst}
	w.str(`{"reqId":"`)
	w.clientID(prefix, seq)
	w.str(`",`)
	w.header(tsMs, v.RecvWindowMs)
	w.str(`"op":"order.create","args":[{"symbol":"`)
	w.str(v.Symbol)
	w.str(`","side":"`)
	w.str(side.String())
	w.str(`","orderType":"`)
	w.str(v.OrderType)
	w.str(`","qty":"`)
	w.f64(qty, v.QtyDecimals)
	if v.OrderType != "Market" {
		w.str(`","price":"`)
		w.f64(price, v.PriceDecimals)
	}
	w.str(`","category":"`)
	w.str(v.Category)
	w.str(`","timeInForce":"`)
	w.str(v.TimeInForce)
	w.str(`","orderLinkId":"`)
	w.clientID(prefix, seq)
	w.str(`"}]}`)
	return w.done()
}

// FormatCancel writes an order.cancel request by client id.
func FormatCancel(dst []byte, v *Venue, prefix []byte, seq uint64, tsMs int64) (int, error) {
	w := writer{b: dst}
	w.str(`{"reqId":"`)
	w.clientID(prefix, seq)
	w.str(`",`)
	w.header(tsMs, v.RecvWindowMs)
	w.str(`"op":"order.cancel","args":[{"category":"`)
	w.str(v.Category)
	w.str(`","symbol":"`)
	w.str(v.Symbol)
	w.str(`","orderLinkId":"`)
	w.clientID(prefix, seq)
	w.str(`"}]}`)
	return w.done()
}

// FormatAuth writes the auth op: {"op":"auth","args":[key, expires, sig]}.
// sig is the hex HMAC of "GET/realtime"+expires, see auth.Signer.
func FormatAuth(dst []byte, apiKey string, expiresMs int64, sig []byte) (int, error) {
	w := writer{b: dst}
	w.str(`{"op":"auth","args":["`)
	w.str(apiKey)
	w.str(`",`)
	w.i64(expiresMs)
	w.str(`,"`)
	w.raw(sig)
	w.str(`"]}`)
	return w.done()
}

// FormatSubscribe writes {"op":"subscribe","args":[topic]}.
func FormatSubscribe(dst []byte, topic string) (int, error) {
	return formatTopicOp(dst, "subscribe", topic)
}

// FormatUnsubscribe writes {"op":"unsubscribe","args":[topic]}.
func FormatUnsubscribe(dst []byte, topic string) (int, error) {
	return formatTopicOp(dst, "unsubscribe", topic)
}

func formatTopicOp(dst []byte, op, topic string) (int, error) {
	w := writer{b: dst}
	w.str(`{"op":"`)
	w.str(op)
	w.str(`","args":["`)
	w.str(topic)
	w.str(`"]}`)
	return w.done()
}

// DepthTopic returns the orderbook topic for symbol at depth levels.
// Called once at startup.
func DepthTopic(depth int, symbol string) string {
	return "orderbook." + strconv.Itoa(depth) + "." + symbol
}
