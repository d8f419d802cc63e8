package session

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces run IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default IDGenerator. UUIDv7 ids sort by creation
// time, which keeps "runs list" output and id prefixes roughly chronological.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ListIDs hands out a fixed list of run IDs, then panics. Tests use it to
// pin run IDs and to catch an unexpected extra solve.
type ListIDs struct {
	ids  []string
	next atomic.Int64
}

func NewListIDs(ids ...string) *ListIDs {
	return &ListIDs{ids: ids}
}

func (l *ListIDs) Generate() string {
	i := l.next.Add(1) - 1
	if i >= int64(len(l.ids)) {
		panic(fmt.Sprintf("session: run id #%d requested, only %d listed", i+1, len(l.ids)))
	}
	return l.ids[i]
}

// Clock stamps runs with seq numbers. Seqs are unique and increasing within
// a store; wall time never orders runs.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt returns a clock whose first Next is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

func (c *Clock) Next() int64 { return c.seq.Add(1) }

// Current is the last seq handed out.
func (c *Clock) Current() int64 { return c.seq.Load() }
