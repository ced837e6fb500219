package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const (
	recordSeparator = "\n\n"
	dataPrefix      = "data: "
)

// Reassembler extracts complete records from a narrative stream's growing
// text buffer. Feed is handed the entire buffer received so far on every
// call; an internal cursor makes re-reads idempotent. Only records that
// are followed by the blank-line separator are consumed; a trailing
// partial record stays in the buffer until more text arrives.
type Reassembler struct {
	logger *slog.Logger

	// lastProcessedLength is the byte offset of the end of the last
	// complete record, never the end of the raw buffer.
	lastProcessedLength int
}

// NewReassembler creates a reassembler with its cursor at zero.
func NewReassembler(logger *slog.Logger) *Reassembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reassembler{logger: logger}
}

// Feed decodes the messages in any newly completed records and advances
// the cursor past them. Malformed records are logged and skipped without
// halting reassembly of the records after them.
func (r *Reassembler) Feed(buffer string) []Message {
	if len(buffer) <= r.lastProcessedLength {
		return nil
	}
	fresh := buffer[r.lastProcessedLength:]

	end := strings.LastIndex(fresh, recordSeparator)
	if end < 0 {
		return nil
	}
	complete := fresh[:end+len(recordSeparator)]
	r.lastProcessedLength += len(complete)

	var messages []Message
	for _, record := range strings.Split(complete, recordSeparator) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		msg, ok := r.decodeRecord(record)
		if !ok {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

// decodeRecord parses one record's field lines and decodes the data
// payload into a Message.
func (r *Reassembler) decodeRecord(record string) (Message, bool) {
	var payload string
	for _, line := range strings.Split(record, "\n") {
		if strings.HasPrefix(line, dataPrefix) {
			payload = strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		}
	}
	if payload == "" {
		r.logger.Warn("stream record without data field", "record", record)
		return Message{}, false
	}

	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("failed to decode stream payload", "error", err, "payload", payload)
		return Message{}, false
	}
	return msg, true
}

// Processed returns the current cursor position.
func (r *Reassembler) Processed() int {
	return r.lastProcessedLength
}

// Reset rewinds the cursor to zero for a fresh stream. Used after choice
// submission, which restarts the protocol from scratch rather than
// resuming in place.
func (r *Reassembler) Reset() {
	r.lastProcessedLength = 0
}
