package types

import (
	"time"

	"github.com/google/uuid"
)

// LogMessage is a single log line carried inside a LogPacket.
//
// The routing engine never inspects Level, Source, or Message beyond
// counting messages; they round-trip unmodified to the analyzer.
type LogMessage struct {
	ID      string `json:"id"`
	Level   string `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// LogPacket is the atomic unit of ingest. The distributor never splits one.
type LogPacket struct {
	PacketID      string       `json:"packetId"`
	AgentID       string       `json:"agentId"`
	Timestamp     time.Time    `json:"timestamp"`
	TotalMessages int          `json:"totalMessages"`
	Messages      []LogMessage `json:"messages"`
	Checksum      string       `json:"checksum,omitempty"`
}

// ApplyDefaults fills PacketID/Timestamp when the caller omitted them,
// matching the Java model's UUID/Instant.now() builder defaults.
func (p *LogPacket) ApplyDefaults() {
	if p.PacketID == "" {
		p.PacketID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now().UTC()
	}
	for i := range p.Messages {
		if p.Messages[i].ID == "" {
			p.Messages[i].ID = uuid.NewString()
		}
	}
}

// MessageCount returns the number of messages the core charges to an
// analyzer on successful delivery of this packet.
func (p *LogPacket) MessageCount() int64 {
	return int64(len(p.Messages))
}
