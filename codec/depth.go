// ════════════════════════════════════════════════════════════════════════════════════════════════
// Depth Frame Extractor
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: tick2trade
// Component: Wire Codec / Market Data
//
// Description:
//   Pulls the handful of fields the book needs out of one orderbook frame:
//
//     {"topic":"orderbook.50.BTCUSDT","type":"delta","ts":1700000000000,
//      "data":{"s":"BTCUSDT","b":[["100.00","1"]],"a":[["100.05","0"]],
//              "u":12345,"seq":678},"cts":1700000000000}
//
//   Keys are matched in any order; unknown keys are skipped by bracket
//   depth. No tree is built and nothing is allocated: symbol and topic are
//   borrowed views into the frame, numbers are parsed in place.
//
// Safety model:
//   - Frames come from a TLS-authenticated venue but are still bounds-checked
//   - A frame with more than MaxLevelChanges updates per side is Malformed
// ════════════════════════════════════════════════════════════════════════════════════════════════

package codec

import (
	"bytes"

	"github.com/valyala/fastjson/fastfloat"

	"tick2trade/constants"
	"tick2trade/orderbook"
	"tick2trade/utils"
)

var depthTopicPrefix = []byte("orderbook.")

// Depth is a decoded depth frame. Reused across frames by its owner.
type Depth struct {
	Snapshot bool
	UpdateID uint64
	Seq      uint64
	TS       int64

	Topic  []byte // borrowed
	Symbol []byte // borrowed

	Bids [constants.MaxLevelChanges]orderbook.Level
	Asks [constants.MaxLevelChanges]orderbook.Level
	NB   int
	NA   int
}

// BidChanges returns the parsed bid updates.
func (d *Depth) BidChanges() []orderbook.Level { return d.Bids[:d.NB] }

// AskChanges returns the parsed ask updates.
func (d *Depth) AskChanges() []orderbook.Level { return d.Asks[:d.NA] }

// ParseDepth decodes frame into d. d's borrowed fields alias frame.
//
// Returns ErrNotDepth for well-formed frames without an orderbook topic
// and a Malformed *ParseError for anything it cannot read.
func ParseDepth(frame []byte, d *Depth) error {
	d.Snapshot, d.UpdateID, d.Seq, d.TS = false, 0, 0, 0
	d.Topic, d.Symbol = nil, nil
	d.NB, d.NA = 0, 0

	var (
		sawType bool
		sawData bool
		sawID   bool
	)

	i := utils.SkipSpace(frame, 0)
	if i >= len(frame) || frame[i] != '{' {
		return errNotObject
	}
	i++

	for {
		i = utils.SkipSpace(frame, i)
		if i >= len(frame) {
			return errTruncated
		}
		if frame[i] == '}' {
			break
		}
		if frame[i] == ',' {
			i++
			continue
		}
		key, next := utils.SliceASCII(frame, i)
		if next < 0 {
			return errBadKey
		}
		i = utils.SkipSpace(frame, next)
		if i >= len(frame) || frame[i] != ':' {
			return errBadKey
		}
		i = utils.SkipSpace(frame, i+1)

		switch utils.B2s(key) {
		case "topic":
			v, end := utils.SliceASCII(frame, i)
			if end < 0 {
				return errTruncated
			}
			d.Topic = v
			i = end
		case "type":
			v, end := utils.SliceASCII(frame, i)
			if end < 0 {
				return errTruncated
			}
			switch utils.B2s(v) {
			case "snapshot":
				d.Snapshot = true
			case "delta":
			default:
				return errBadType
			}
			sawType = true
			i = end
		case "ts":
			span, end := numberSpan(frame, i)
			if end < 0 {
				return errBadNumber
			}
			ts, ok := utils.ParseInt(span)
			if !ok {
				return errBadNumber
			}
			d.TS = ts
			i = end
		case "data":
			if i >= len(frame) || frame[i] != '{' ||
				(d.Topic != nil && !bytes.HasPrefix(d.Topic, depthTopicPrefix)) {
				end := utils.SkipValue(frame, i)
				if end < 0 {
					return errTruncated
				}
				i = end
				continue
			}
			end, err := parseDepthData(frame, i, d, &sawID)
			if err != nil {
				return err
			}
			sawData = true
			i = end
		default:
			end := utils.SkipValue(frame, i)
			if end < 0 {
				return errTruncated
			}
			i = end
		}
	}

	if !bytes.HasPrefix(d.Topic, depthTopicPrefix) {
		return ErrNotDepth
	}
	if !sawType {
		return errBadType
	}
	if !sawData {
		return errNoData
	}
	if !sawID {
		return errNoUpdateID
	}
	return nil
}

func parseDepthData(frame []byte, i int, d *Depth, sawID *bool) (int, error) {
	if i >= len(frame) || frame[i] != '{' {
		return -1, errNoData
	}
	i++
	for {
		i = utils.SkipSpace(frame, i)
		if i >= len(frame) {
			return -1, errTruncated
		}
		switch frame[i] {
		case '}':
			return i + 1, nil
		case ',':
			i++
			continue
		}
		key, next := utils.SliceASCII(frame, i)
		if next < 0 {
			return -1, errBadKey
		}
		i = utils.SkipSpace(frame, next)
		if i >= len(frame) || frame[i] != ':' {
			return -1, errBadKey
		}
		i = utils.SkipSpace(frame, i+1)

		var err error
		switch utils.B2s(key) {
		case "b":
			i, d.NB, err = parseLevels(frame, i, &d.Bids)
		case "a":
			i, d.NA, err = parseLevels(frame, i, &d.Asks)
		case "u":
			span, end := numberSpan(frame, i)
			id, ok := utils.ParseUint(span)
			if end < 0 || !ok {
				return -1, errBadUpdateID
			}
			d.UpdateID, *sawID, i = id, true, end
		case "seq":
			span, end := numberSpan(frame, i)
			seq, ok := utils.ParseUint(span)
			if end < 0 || !ok {
				return -1, errBadNumber
			}
			d.Seq, i = seq, end
		case "s":
			v, end := utils.SliceASCII(frame, i)
			if end < 0 {
				return -1, errTruncated
			}
			d.Symbol, i = v, end
		default:
			end := utils.SkipValue(frame, i)
			if end < 0 {
				return -1, errTruncated
			}
			i = end
		}
		if err != nil {
			return -1, err
		}
	}
}

// parseLevels reads [["price","qty"],...] into dst.
func parseLevels(frame []byte, i int, dst *[constants.MaxLevelChanges]orderbook.Level) (int, int, error) {
	if i >= len(frame) || frame[i] != '[' {
		return -1, 0, errBadLevel
	}
	i++
	n := 0
	for {
		i = utils.SkipSpace(frame, i)
		if i >= len(frame) {
			return -1, 0, errTruncated
		}
		switch frame[i] {
		case ']':
			return i + 1, n, nil
		case ',':
			i++
			continue
		case '[':
		default:
			return -1, 0, errBadLevel
		}
		if n == constants.MaxLevelChanges {
			return -1, 0, errTooMany
		}

		price, end, err := parseNumberAt(frame, i+1)
		if err != nil {
			return -1, 0, err
		}
		i = utils.SkipSpace(frame, end)
		if i >= len(frame) || frame[i] != ',' {
			return -1, 0, errBadLevel
		}
		qty, end, err := parseNumberAt(frame, i+1)
		if err != nil {
			return -1, 0, err
		}
		i = utils.SkipSpace(frame, end)
		if i >= len(frame) || frame[i] != ']' {
			return -1, 0, errBadLevel
		}
		i++

		dst[n] = orderbook.Level{Price: price, Qty: qty}
		n++
	}
}

// numberSpan returns the digits of a bare or quoted number at i and the
// index just past it.
func numberSpan(frame []byte, i int) ([]byte, int) {
	i = utils.SkipSpace(frame, i)
	if i >= len(frame) {
		return nil, -1
	}
	if frame[i] == '"' {
		return utils.SliceASCII(frame, i)
	}
	end := utils.SkipValue(frame, i)
	if end < 0 {
		return nil, -1
	}
	return frame[i:end], end
}

func parseNumberAt(frame []byte, i int) (float64, int, error) {
	span, end := numberSpan(frame, i)
	if end < 0 || len(span) == 0 {
		return 0, -1, errBadNumber
	}
	v, err := fastfloat.Parse(utils.B2s(span))
	if err != nil {
		return 0, -1, errBadNumber
	}
	return v, end, nil
}

// Apply feeds a decoded frame into book. A sequence break is reported as
// ErrGap, a stale book as orderbook.ErrStale.
func Apply(book *orderbook.Book, d *Depth) error {
	if d.Snapshot {
		book.ApplySnapshot(d.UpdateID, d.BidChanges(), d.AskChanges())
		return nil
	}
	switch err := book.ApplyDelta(d.UpdateID, d.BidChanges(), d.AskChanges()); err {
	case nil:
		return nil
	case orderbook.ErrGap:
		return ErrGap
	default:
		return err
	}
}
