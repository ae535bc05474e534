// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: journal.go — JSON-lines event journal
//
// Purpose:
//   - Human-greppable copy of the event stream, one object per line.
//   - Size-based rotation through lumberjack.
// ─────────────────────────────────────────────────────────────────────────────

package recorder

import (
	"fmt"

	"github.com/sugawarayuuta/sonnet"
	"gopkg.in/natefinch/lumberjack.v2"

	"tick2trade/order"
	"tick2trade/ring"
)

// JournalOptions configures rotation.
type JournalOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Record is one journal line.
type Record struct {
	Session string     `json:"session"`
	TS      int64      `json:"ts"`
	Kind    string     `json:"kind"`
	Venue   uint8      `json:"venue"`
	Seq     uint64     `json:"seq"`
	Code    string     `json:"code,omitempty"`
	State   string     `json:"state,omitempty"`
	Side    string     `json:"side,omitempty"`
	F       [4]float64 `json:"f"`
}

// JournalSink appends events to a rotating file.
type JournalSink struct {
	w       *lumberjack.Logger
	session string
	buf     []byte
}

func OpenJournal(o JournalOptions, session string) *JournalSink {
	return &JournalSink{
		w: &lumberjack.Logger{
			Filename:   o.Path,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		},
		session: session,
	}
}

func recordOf(session string, ev *ring.Event) Record {
	r := Record{
		Session: session,
		TS:      ev.TS,
		Kind:    ev.Kind.String(),
		Venue:   ev.Venue,
		Seq:     ev.Seq,
		F:       ev.F,
	}
	switch ev.Kind {
	case ring.KindErrorSignal:
		r.Code = ev.Code.String()
	case ring.KindOrderLifecycle:
		r.State = order.State(ev.State).String()
		r.Side = order.Side(ev.Side).String()
	}
	return r
}

// Write appends batch with a single file write.
func (j *JournalSink) Write(batch []ring.Event) error {
	j.buf = j.buf[:0]
	for i := range batch {
		rec := recordOf(j.session, &batch[i])
		b, err := sonnet.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("recorder: journal encode: %w", err)
		}
		j.buf = append(j.buf, b...)
		j.buf = append(j.buf, '\n')
	}
	if _, err := j.w.Write(j.buf); err != nil {
		return fmt.Errorf("recorder: journal write: %w", err)
	}
	return nil
}

func (j *JournalSink) Close() error { return j.w.Close() }
