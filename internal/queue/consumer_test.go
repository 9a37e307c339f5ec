package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-booking/internal/lib/logger/sl"
)

func TestBookingLog_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "booking.log")
	l := NewBookingLog(path)

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	require.NoError(t, l.Handle(body))
	require.NoError(t, l.Handle(body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.TrimSuffix(FormatLine(testEvent()), "\n"), lines[0])
}

func TestBookingLog_RejectsMalformedPayload(t *testing.T) {
	l := NewBookingLog(filepath.Join(t.TempDir(), "booking.log"))
	assert.Error(t, l.Handle([]byte("{not json")))
}

func TestFormatLine(t *testing.T) {
	line := FormatLine(testEvent())
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "[2025-01-02T03:04:06Z]")
	assert.Contains(t, line, "booking_id=7")
	assert.Contains(t, line, `event="Concert"`)
	assert.Contains(t, line, `user_id="alice"`)
	assert.Contains(t, line, "seats_remaining=4")
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestKafkaConsumer_HandlesAndCommits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := json.Marshal(testEvent())
	require.NoError(t, err)
	r := &fakeReader{
		msgs: []kafka.Message{
			{Offset: 1, Value: body},
			{Offset: 2, Value: []byte("garbage")},
		},
		cancel: cancel,
	}
	path := filepath.Join(t.TempDir(), "booking.log")
	c := &KafkaConsumer{log: sl.Discard(), reader: r, handler: NewBookingLog(path)}

	err = c.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(20*time.Second))
	assert.Equal(t, maxBackoff, nextBackoff(maxBackoff))
}

func TestSleep_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
