// ════════════════════════════════════════════════════════════════════════════════════════════════
// Trade Stream Decoder
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Wire Codec / Orders
//
// Description:
//   Decodes what the executable venue sends back on the trade stream:
//
//     op responses   {"reqId":"..","retCode":0,"retMsg":"OK","op":"order.create",
//                     "data":{"orderId":"..","orderLinkId":".."}}
//     auth responses {"retCode":0,"retMsg":"OK","op":"auth"} or {"success":true,"op":"auth"}
//     order pushes   {"topic":"order","data":[{"orderLinkId":"..","orderStatus":"Filled",
//                     "cumExecQty":"1","avgPrice":"100.05"},..]}
//
//   Acks arrive off the tick path, so a reused fastjson.Parser is used here
//   rather than a hand scanner. After warm-up the parser reuses its arena.
// ════════════════════════════════════════════════════════════════════════════════════════════════

package codec

import (
	"github.com/valyala/fastjson"
	"github.com/valyala/fastjson/fastfloat"

	"tick2trade/order"
	"tick2trade/utils"
)

// MsgKind classifies a trade stream message.
type MsgKind uint8

const (
	MsgUnknown MsgKind = iota
	MsgAuth
	MsgOrderAck
	MsgCancelAck
	MsgOrderUpdate
	MsgSubscribe
	MsgPong
)

// RetOrderNotExists is the venue code for cancelling an unknown or
// already-settled order.
const RetOrderNotExists = 110001

// maxUpdates bounds the order pushes decoded from one frame.
const maxUpdates = 16

// OrderUpdate is one entry of an order-topic push.
type OrderUpdate struct {
	ClientSeq uint64
	Ours      bool // orderLinkId carried this session's prefix
	State     order.State
	CumQty    float64
	AvgPrice  float64
}

// OrderMsg is a decoded trade stream message. Reused across calls.
type OrderMsg struct {
	Kind    MsgKind
	OK      bool
	RetCode int

	// Op responses.
	ClientSeq uint64
	Ours      bool

	// Order pushes.
	Updates [maxUpdates]OrderUpdate
	N       int
}

// OrderParser decodes trade stream messages for one session prefix.
type OrderParser struct {
	p      fastjson.Parser
	prefix []byte
}

// NewOrderParser returns a parser that recognises client ids carrying prefix.
func NewOrderParser(prefix []byte) *OrderParser {
	return &OrderParser{prefix: append([]byte(nil), prefix...)}
}

// Parse decodes frame into m. Unrecognised but valid JSON yields MsgUnknown.
func (op *OrderParser) Parse(frame []byte, m *OrderMsg) error {
	m.Kind, m.OK, m.RetCode = MsgUnknown, false, 0
	m.ClientSeq, m.Ours, m.N = 0, false, 0

	v, err := op.p.ParseBytes(frame)
	if err != nil {
		return errNotObject
	}

	if topic := v.GetStringBytes("topic"); topic != nil {
		if utils.B2s(topic) != "order" {
			return nil
		}
		m.Kind = MsgOrderUpdate
		m.OK = true
		for _, item := range v.GetArray("data") {
			if m.N == maxUpdates {
				break
			}
			u := &m.Updates[m.N]
			u.ClientSeq, u.Ours = ParseClientID(item.GetStringBytes("orderLinkId"), op.prefix)
			st, ok := statusFromVenue(item.GetStringBytes("orderStatus"))
			if !ok {
				continue
			}
			u.State = st
			u.CumQty = fastfloat.ParseBestEffort(utils.B2s(item.GetStringBytes("cumExecQty")))
			u.AvgPrice = fastfloat.ParseBestEffort(utils.B2s(item.GetStringBytes("avgPrice")))
			m.N++
		}
		return nil
	}

	switch utils.B2s(v.GetStringBytes("op")) {
	case "auth":
		m.Kind = MsgAuth
	case "order.create":
		m.Kind = MsgOrderAck
	case "order.cancel":
		m.Kind = MsgCancelAck
	case "subscribe", "unsubscribe":
		m.Kind = MsgSubscribe
	case "pong", "ping":
		m.Kind = MsgPong
	default:
		return nil
	}

	if v.Exists("retCode") {
		m.RetCode = v.GetInt("retCode")
		m.OK = m.RetCode == 0
	} else {
		m.OK = v.GetBool("success")
	}

	link := v.GetStringBytes("data", "orderLinkId")
	if link == nil {
		link = v.GetStringBytes("reqId")
	}
	m.ClientSeq, m.Ours = ParseClientID(link, op.prefix)
	return nil
}

func statusFromVenue(s []byte) (order.State, bool) {
	switch utils.B2s(s) {
	case "New", "Untriggered", "Triggered":
		return order.Acked, true
	case "PartiallyFilled":
		return order.PartiallyFilled, true
	case "Filled":
		return order.Filled, true
	case "Cancelled", "PartiallyFilledCanceled", "Deactivated":
		return order.Cancelled, true
	case "Rejected":
		return order.Rejected, true
	}
	return 0, false
}
