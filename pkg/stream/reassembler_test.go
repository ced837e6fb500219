package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(payload string) string {
	return "data: " + payload + "\n\n"
}

func TestFeed_SingleCompleteRecord(t *testing.T) {
	r := NewReassembler(nil)
	buf := record(`{"message_id":"m1","type":"dialogue","speaker_id":"char-1","content":"Hello"}`)

	msgs := r.Feed(buf)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].MessageID)
	assert.Equal(t, TypeDialogue, msgs[0].Type)
	assert.Equal(t, "Hello", msgs[0].Content)
}

func TestFeed_IdempotentOnSameBuffer(t *testing.T) {
	r := NewReassembler(nil)
	buf := record(`{"message_id":"m1","type":"narrator","content":"Dawn."}`)

	require.Len(t, r.Feed(buf), 1)
	assert.Empty(t, r.Feed(buf), "re-feeding an already processed buffer must yield nothing")
}

func TestFeed_CumulativeBufferGrowth(t *testing.T) {
	r := NewReassembler(nil)
	first := record(`{"message_id":"m1","type":"dialogue","content":"We need"}`)

	msgs := r.Feed(first)
	require.Len(t, msgs, 1)

	// The poller always hands over everything received so far.
	grown := first + record(`{"message_id":"m1","type":"dialogue","content":" to leave."}`)
	msgs = r.Feed(grown)
	require.Len(t, msgs, 1, "exactly one new decode, not a replay of the first")
	assert.Equal(t, " to leave.", msgs[0].Content)
}

func TestFeed_PartialRecordHeldBack(t *testing.T) {
	r := NewReassembler(nil)
	complete := record(`{"message_id":"m1","type":"narrator","content":"The door opens."}`)
	partial := `data: {"message_id":"m2","type":"dial`

	msgs := r.Feed(complete + partial)
	require.Len(t, msgs, 1)
	assert.Equal(t, len(complete), r.Processed(), "cursor stops at the last complete record")

	msgs = r.Feed(complete + `data: {"message_id":"m2","type":"dialogue","content":"Who's there?"}` + "\n\n")
	require.Len(t, msgs, 1)
	assert.Equal(t, "m2", msgs[0].MessageID)
}

func TestFeed_NoSeparatorYet(t *testing.T) {
	r := NewReassembler(nil)
	assert.Empty(t, r.Feed(`data: {"message_id":"m1"}`))
	assert.Zero(t, r.Processed())
}

func TestFeed_MalformedPayloadSkipped(t *testing.T) {
	r := NewReassembler(nil)
	buf := record(`{not json`) +
		record(`{"message_id":"m2","type":"action","content":"She runs."}`) +
		"ping\n\n" // record without a data field

	msgs := r.Feed(buf)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m2", msgs[0].MessageID)
	assert.Equal(t, len(buf), r.Processed(), "malformed records still consume buffer")
}

func TestFeed_MultipleRecordsAtOnce(t *testing.T) {
	r := NewReassembler(nil)
	buf := record(`{"message_id":"m1","type":"dialogue","content":"One"}`) +
		record(`{"message_id":"m2","type":"dialogue","content":"Two"}`) +
		record(`{"message_id":"m3","type":"player_choice","title":"Choose","options":[{"type":"Dialogue","label":"Stay"}]}`)

	msgs := r.Feed(buf)
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].IsPlayerChoice())
	require.Len(t, msgs[2].Options, 1)
	assert.Equal(t, "Stay", msgs[2].Options[0].Label)
}

func TestReset_RewindsCursor(t *testing.T) {
	r := NewReassembler(nil)
	buf := record(`{"message_id":"m1","type":"narrator","content":"End."}`)
	require.Len(t, r.Feed(buf), 1)

	r.Reset()
	assert.Zero(t, r.Processed())
	require.Len(t, r.Feed(buf), 1, "a restarted stream is consumed from scratch")
}
