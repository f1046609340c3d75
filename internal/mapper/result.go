package mapper

import (
	"fmt"
	"time"

	"github.com/squallbio/squall/internal/index"
	"github.com/squallbio/squall/internal/seeds"
)

// ReadLoc is the result record for one read: identity, the mapped
// reference interval when the read resolved, and timing. It serializes
// to one PAF line.
type ReadLoc struct {
	Name    string
	Channel uint16
	Number  uint32

	RdLen int64 // events processed
	RdSt  int64 // first event of the mapped span
	RdEn  int64 // one past the last event of the mapped span

	RfName string
	RfLen  int64
	RfSt   int64
	RfEn   int64
	Fwd    bool

	Matches int
	Time    time.Duration

	mapped bool
}

func newReadLoc(name string, channel uint16, number uint32) ReadLoc {
	return ReadLoc{Name: name, Channel: channel, Number: number}
}

// setRef fills the reference fields from the winning cluster. The event
// span is pulled back by the cluster's text extent so the read interval
// covers the events that produced the seeds, not just their endpoints.
func (l *ReadLoc) setRef(loc index.Loc, cl seeds.Cluster, events int, d time.Duration) {
	l.RdSt = cl.EvtSt - (cl.TextEn - cl.TextSt) + 1
	if l.RdSt < 0 {
		l.RdSt = 0
	}
	l.RdEn = cl.EvtEn + 1
	l.RfName = loc.Name
	l.RfLen = loc.RefLen
	l.RfSt = loc.Start
	l.RfEn = loc.End
	l.Fwd = loc.Fwd
	l.Matches = cl.Count
	l.mapped = true
	l.finish(events, d)
}

// finish records the totals shared by mapped and unmapped outcomes.
func (l *ReadLoc) finish(events int, d time.Duration) {
	l.RdLen = int64(events)
	l.Time = d
}

// Mapped reports whether the read resolved to a reference location.
func (l *ReadLoc) Mapped() bool { return l.mapped }

// SetMapped marks a record rehydrated from storage as mapped.
func (l *ReadLoc) SetMapped() { l.mapped = true }

// PAF renders the record as one PAF line (no trailing newline). The
// YT:f: tag carries the wall-clock mapping time in milliseconds.
func (l *ReadLoc) PAF() string {
	ms := float64(l.Time) / float64(time.Millisecond)
	if !l.mapped {
		return fmt.Sprintf("%s\t%d\t*\t*\t*\t*\t*\t*\t*\t*\t*\t0\tYT:f:%.3f",
			l.Name, l.RdLen, ms)
	}
	strand := byte('+')
	if !l.Fwd {
		strand = '-'
	}
	return fmt.Sprintf("%s\t%d\t%d\t%d\t%c\t%s\t%d\t%d\t%d\t%d\t%d\t255\tYT:f:%.3f",
		l.Name, l.RdLen, l.RdSt, l.RdEn, strand,
		l.RfName, l.RfLen, l.RfSt, l.RfEn,
		l.Matches, l.RfEn-l.RfSt, ms)
}
