package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessage_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")

	ev := NewReservationEvent(ReservationCreated)
	ev.ReservationID = 42
	ev.UserID = 7
	ev.HotelID = 1
	ev.RoomTypeID = 3
	ev.StartDate = "2024-06-01"
	ev.EndDate = "2024-06-03"
	ev.NumberOfRooms = 2
	ev.OccurredAt = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handleMessage(path, body))
	ev.Type = ReservationCancelled
	body, _ = json.Marshal(ev)
	require.NoError(t, handleMessage(path, body))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"[2024-05-20T10:00:00Z] reservation.created | event_id="+ev.EventID+
			" | reservation_id=42 | user_id=7 | hotel_id=1 | room_type_id=3 | stay=2024-06-01..2024-06-03 | rooms=2",
		lines[0])
	assert.Contains(t, lines[1], "reservation.cancelled")
}

func TestHandleMessage_RejectsBadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")

	assert.Error(t, handleMessage(path, []byte("not json")))
	assert.Error(t, handleMessage(path, []byte(`{"type":"reservation.created"}`)))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing written for rejected messages")
}

func TestNewReservationEvent(t *testing.T) {
	a := NewReservationEvent(ReservationUpdated)
	b := NewReservationEvent(ReservationUpdated)
	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, ReservationUpdated, a.Type)
	assert.Equal(t, time.UTC, a.OccurredAt.Location())
}
