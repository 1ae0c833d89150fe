package chat

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ataa/localbase/kv"
	"ataa/localbase/store"
)

func newTestChat(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	backing := kv.NewRedisWithClient(client, "ataa_realtime_channel")
	docs, err := store.New(backing, store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })
	return New(docs), docs
}

func TestCreateConversation(t *testing.T) {
	chats, docs := newTestChat(t)
	ctx := context.Background()

	id, err := chats.CreateConversation(ctx, []string{"u1", "u2"}, []string{"item-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := docs.GetOne(ctx, ConversationsCollection, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, doc.Strings("participants"))
	assert.Equal(t, []string{"item-1"}, doc.Strings("itemIds"))
	assert.Equal(t, "", doc.String("lastMessage"))
	assert.NotZero(t, doc.Number("createdAt"))
}

func TestSendMessageUpdatesSummary(t *testing.T) {
	chats, docs := newTestChat(t)
	ctx := context.Background()

	convID, err := chats.CreateConversation(ctx, []string{"u1", "u2"}, nil)
	require.NoError(t, err)

	msgID, err := chats.SendMessage(ctx, convID, "u1", "Sara", "hello there")
	require.NoError(t, err)

	msg, err := docs.GetOne(ctx, MessagesCollection(convID), msgID)
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.String("senderId"))
	assert.Equal(t, "hello there", msg.String("content"))
	assert.Equal(t, false, msg["read"])

	conv, err := docs.GetOne(ctx, ConversationsCollection, convID)
	require.NoError(t, err)
	assert.Equal(t, "hello there", conv.String("lastMessage"))
	assert.GreaterOrEqual(t, conv.Number("lastMessageAt"), conv.Number("createdAt"))
}

func TestSendMessageSanitizesPreview(t *testing.T) {
	chats, docs := newTestChat(t)
	ctx := context.Background()

	convID, err := chats.CreateConversation(ctx, []string{"u1", "u2"}, nil)
	require.NoError(t, err)

	_, err = chats.SendMessage(ctx, convID, "u1", "Sara", "<img src=x>watch out")
	require.NoError(t, err)

	conv, err := docs.GetOne(ctx, ConversationsCollection, convID)
	require.NoError(t, err)
	assert.Equal(t, "watch out", conv.String("lastMessage"))
}

func TestMessagesAscendingByTimestamp(t *testing.T) {
	chats, docs := newTestChat(t)
	ctx := context.Background()

	convID, err := chats.CreateConversation(ctx, []string{"u1", "u2"}, nil)
	require.NoError(t, err)

	// Insert out of order directly to exercise the sort, since real
	// sends within one process already arrive ordered.
	coll := MessagesCollection(convID)
	for _, m := range []store.Document{
		{"id": "m2", "content": "second", "timestamp": 2000},
		{"id": "m1", "content": "first", "timestamp": 1000},
		{"id": "m3", "content": "third", "timestamp": 3000},
	} {
		_, err := docs.AddOne(ctx, coll, m)
		require.NoError(t, err)
	}

	var got []Message
	dispose := chats.MessagesForConversation(ctx, convID, func(messages []Message) {
		got = messages
	})
	defer dispose()

	require.Len(t, got, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{got[0].Content, got[1].Content, got[2].Content})
}

func TestConversationsForUserFilterAndOrder(t *testing.T) {
	chats, docs := newTestChat(t)
	ctx := context.Background()

	a, err := chats.CreateConversation(ctx, []string{"u1", "u2"}, nil)
	require.NoError(t, err)
	b, err := chats.CreateConversation(ctx, []string{"u1", "u3"}, nil)
	require.NoError(t, err)
	_, err = chats.CreateConversation(ctx, []string{"u2", "u3"}, nil)
	require.NoError(t, err)

	// Make conversation a the most recent.
	require.NoError(t, docs.UpdateOne(ctx, ConversationsCollection, a,
		store.Document{"lastMessageAt": 9000, "lastMessage": "newest"}))
	require.NoError(t, docs.UpdateOne(ctx, ConversationsCollection, b,
		store.Document{"lastMessageAt": 1000, "lastMessage": "older"}))

	var got []Conversation
	calls := 0
	dispose := chats.ConversationsForUser(ctx, "u1", func(conversations []Conversation) {
		got = conversations
		calls++
	})
	defer dispose()

	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].ID)
	assert.Equal(t, b, got[1].ID)

	// A new message re-fires the live query and reorders.
	_, err = chats.SendMessage(ctx, b, "u3", "Omar", "bump")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	assert.Equal(t, b, got[0].ID)
	assert.Equal(t, "bump", got[0].LastMessage)
}
