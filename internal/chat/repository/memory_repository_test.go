package repository

import (
	"errors"
	"testing"
	"time"

	"group_chat_service/internal/chat/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Identity{ID: "u-alice", Username: "alice", Avatar: "a.png"}
	bob   = domain.Identity{ID: "u-bob", Username: "bob", Avatar: "b.png"}
)

func TestPresenceRegistry_AdmitLookupRemove(t *testing.T) {
	reg := NewPresenceRegistry()

	s, err := reg.Admit("c1", alice)
	require.NoError(t, err)
	assert.Equal(t, "u-alice", s.UserID)
	assert.Equal(t, domain.SessionStatusOnline, s.Status)
	assert.Empty(t, s.CurrentRoomID)

	_, err = reg.Admit("c1", bob)
	assert.True(t, errors.Is(err, domain.ErrDuplicateConnection))

	got, ok := reg.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)

	removed, ok := reg.Remove("c1")
	assert.True(t, ok)
	assert.Equal(t, "c1", removed.ConnectionID)

	_, ok = reg.Remove("c1")
	assert.False(t, ok, "remove is idempotent")

	_, ok = reg.Lookup("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Count())
}

func TestPresenceRegistry_MembershipIsDerived(t *testing.T) {
	reg := NewPresenceRegistry()
	_, _ = reg.Admit("c1", alice)
	_, _ = reg.Admit("c2", alice)
	_, _ = reg.Admit("c3", bob)

	for _, c := range []string{"c1", "c2", "c3"} {
		_, err := reg.SetRoom(c, "global")
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"u-alice", "u-bob"}, reg.MemberIDs("global"))
	assert.Equal(t, 2, reg.MemberCount("global"))
	assert.Len(t, reg.ListByRoom("global"), 3)
	assert.Len(t, reg.ListByUser("u-alice"), 2)

	prev, err := reg.SetRoom("c1", "devs")
	require.NoError(t, err)
	assert.Equal(t, "global", prev)

	// alice still has c2 in global
	assert.True(t, reg.IsMember("global", "u-alice"))
	assert.True(t, reg.IsMember("devs", "u-alice"))

	reg.Remove("c2")
	assert.False(t, reg.IsMember("global", "u-alice"))
	assert.Equal(t, []string{"u-bob"}, reg.MemberIDs("global"))
}

func TestPresenceRegistry_SetRoomUnknown(t *testing.T) {
	reg := NewPresenceRegistry()
	_, err := reg.SetRoom("ghost", "global")
	assert.ErrorIs(t, err, domain.ErrUnknownSession)
}

type fixedCounter map[string]int

func (f fixedCounter) MemberCount(roomID string) int { return f[roomID] }

func TestRoomDirectory(t *testing.T) {
	dir := NewRoomDirectory("global", "Global Chat")

	g := dir.EnsureDefaultRoom()
	assert.Equal(t, "global", g.ID)
	assert.Equal(t, "Global Chat", g.Name)
	assert.Equal(t, g, dir.EnsureDefaultRoom(), "idempotent")
	assert.Equal(t, "global", dir.DefaultRoomID())

	devs, err := dir.CreateRoom("devs", "u-alice")
	require.NoError(t, err)
	_, err = uuid.Parse(devs.ID)
	assert.NoError(t, err)
	assert.Equal(t, "u-alice", devs.CreatedBy)

	other, err := dir.CreateRoom("devs", "u-bob")
	require.NoError(t, err)
	assert.NotEqual(t, devs.ID, other.ID)

	lobby, created := dir.GetOrCreate("lobby", "")
	assert.True(t, created)
	assert.Equal(t, "lobby", lobby.Name, "name falls back to id")

	again, created := dir.GetOrCreate("lobby", "Renamed")
	assert.False(t, created)
	assert.Equal(t, "lobby", again.Name)

	named, _ := dir.GetOrCreate("music", "Music Room")
	assert.Equal(t, "Music Room", named.Name)

	sums := dir.Summaries(fixedCounter{devs.ID: 1, "global": 3})
	require.Len(t, sums, 5)
	assert.Equal(t, domain.RoomSummary{ID: "global", Name: "Global Chat", MemberCount: 3}, sums[0])
	assert.Equal(t, domain.RoomSummary{ID: devs.ID, Name: "devs", MemberCount: 1}, sums[1])
	assert.Equal(t, "lobby", sums[3].ID)
	assert.Equal(t, "music", sums[4].ID)

	_, ok := dir.Get("nope")
	assert.False(t, ok)
}

func TestRoomDirectory_IDExhaustion(t *testing.T) {
	dir := NewRoomDirectory("global", "Global Chat").(*memoryRoomDirectory)
	dir.newID = func() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy") }

	_, err := dir.CreateRoom("devs", "u-alice")
	assert.Error(t, err)
	assert.Empty(t, dir.List())
}

func TestMessageLog_AppendHistoryOrder(t *testing.T) {
	log := NewMessageLog()
	log.CreateRoomLog("global")

	texts := []string{"one", "two", "three", "four"}
	for _, txt := range texts {
		m, err := log.Append("global", domain.Message{UserID: "u-alice", Username: "alice", Text: txt})
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "global", m.RoomID)
		assert.NotNil(t, m.Reactions)
	}

	hist, err := log.History("global")
	require.NoError(t, err)
	require.Len(t, hist, len(texts))
	for i, m := range hist {
		assert.Equal(t, texts[i], m.Text)
		if i > 0 {
			assert.False(t, m.Timestamp.Before(hist[i-1].Timestamp))
		}
	}
}

func TestMessageLog_TimestampNeverGoesBack(t *testing.T) {
	ml := NewMessageLog().(*memoryMessageLog)
	ml.CreateRoomLog("global")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Second)}
	ml.now = func() time.Time {
		t := clock[0]
		clock = clock[1:]
		return t
	}

	first, _ := ml.Append("global", domain.Message{Text: "a"})
	second, _ := ml.Append("global", domain.Message{Text: "b"})
	assert.Equal(t, first.Timestamp, second.Timestamp)
}

func TestMessageLog_UnknownRoom(t *testing.T) {
	log := NewMessageLog()

	_, err := log.Append("nope", domain.Message{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrUnknownRoom)

	_, err = log.History("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownRoom)
}

func TestMessageLog_HistoryIsACopy(t *testing.T) {
	log := NewMessageLog()
	log.CreateRoomLog("global")
	m, _ := log.Append("global", domain.Message{Text: "x"})

	hist, _ := log.History("global")
	hist[0].Text = "tampered"
	hist[0].Reactions["👍"] = []string{"mallory"}

	again, _ := log.History("global")
	assert.Equal(t, "x", again[0].Text)
	assert.Empty(t, again[0].Reactions)
	assert.Equal(t, m.ID, again[0].ID)
}

func TestMessageLog_AddReactionIdempotent(t *testing.T) {
	log := NewMessageLog()
	log.CreateRoomLog("global")
	m, _ := log.Append("global", domain.Message{Text: "hi"})

	once, err := log.AddReaction("global", m.ID, "👍", "u-alice")
	require.NoError(t, err)
	twice, err := log.AddReaction("global", m.ID, "👍", "u-alice")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"u-alice"}, twice["👍"])

	withBob, _ := log.AddReaction("global", m.ID, "👍", "u-bob")
	assert.Equal(t, []string{"u-alice", "u-bob"}, withBob["👍"])

	_, err = log.AddReaction("global", "missing", "👍", "u-alice")
	assert.ErrorIs(t, err, domain.ErrUnknownMessage)
	_, err = log.AddReaction("nope", m.ID, "👍", "u-alice")
	assert.ErrorIs(t, err, domain.ErrUnknownRoom)
}

func TestTypingTracker(t *testing.T) {
	tt := NewTypingTracker()

	assert.True(t, tt.MarkTyping("global", "u-bob"))
	assert.False(t, tt.MarkTyping("global", "u-bob"))
	assert.True(t, tt.MarkTyping("global", "u-alice"))
	assert.Equal(t, []string{"u-alice", "u-bob"}, tt.Typing("global"))
	assert.True(t, tt.IsTyping("global", "u-bob"))

	assert.True(t, tt.ClearTyping("global", "u-bob"))
	assert.False(t, tt.ClearTyping("global", "u-bob"))
	assert.False(t, tt.ClearTyping("elsewhere", "u-bob"))
	assert.Equal(t, []string{"u-alice"}, tt.Typing("global"))
	assert.Empty(t, tt.Typing("elsewhere"))

	assert.True(t, tt.MarkTyping("devs", "u-alice"))
	assert.Equal(t, []string{"devs", "global"}, tt.RoomsOf("u-alice"))
	assert.Empty(t, tt.RoomsOf("u-bob"))
}
