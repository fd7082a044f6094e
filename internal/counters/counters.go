// Package counters holds the process-wide atomic totals named in the data
// model: packets received/queued/processed/dropped and the aggregate
// messages-processed figure the Selector reads as T. Grounded on the Java
// original's LongAdder fields on DistributorServiceImpl, translated to
// sync/atomic counters per the no-ambient-locks design note.
package counters

import "sync/atomic"

// Counters is safe for concurrent use; every method is lock-free.
type Counters struct {
	packetsReceived        atomic.Int64
	packetsQueued          atomic.Int64
	packetsProcessed       atomic.Int64
	packetsDropped         atomic.Int64
	totalMessagesProcessed atomic.Int64
}

// New returns a zeroed Counters.
func New() *Counters { return &Counters{} }

func (c *Counters) IncReceived()  { c.packetsReceived.Add(1) }
func (c *Counters) IncQueued()    { c.packetsQueued.Add(1) }
func (c *Counters) IncProcessed() { c.packetsProcessed.Add(1) }
func (c *Counters) IncDropped()   { c.packetsDropped.Add(1) }

// AddMessagesProcessed charges n messages to the global total. Called
// exactly once per successfully delivered packet, alongside the target
// analyzer's own RecordDelivery.
func (c *Counters) AddMessagesProcessed(n int64) { c.totalMessagesProcessed.Add(n) }

func (c *Counters) Received() int64        { return c.packetsReceived.Load() }
func (c *Counters) Queued() int64          { return c.packetsQueued.Load() }
func (c *Counters) Processed() int64       { return c.packetsProcessed.Load() }
func (c *Counters) Dropped() int64         { return c.packetsDropped.Load() }
func (c *Counters) TotalMessages() int64   { return c.totalMessagesProcessed.Load() }
