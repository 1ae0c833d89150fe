// Package chat is the conversation/messaging subsystem, built entirely on
// the document store. Each conversation's messages live in their own
// dynamically named collection so a message send only rewrites that
// conversation's blob.
package chat

import (
	"context"
	"slices"
	"sort"
	"time"

	"ataa/localbase/store"
)

// ConversationsCollection holds one document per conversation.
const ConversationsCollection = "conversations"

// MessagesCollection derives the message collection name for a
// conversation.
func MessagesCollection(conversationID string) string {
	return "messages_" + conversationID
}

// Conversation summarizes a thread between participants about one or more
// items. LastMessage/LastMessageAt are advisory: they are written after
// the message itself and readers only sort and preview on them.
type Conversation struct {
	ID            string
	Participants  []string
	ItemIDs       []string
	CreatedAt     int64
	LastMessageAt int64
	LastMessage   string
}

// Message is one entry in a conversation's message collection.
type Message struct {
	ID         string
	SenderID   string
	SenderName string
	Content    string
	Timestamp  int64
	Read       bool
}

// Service provides the messaging API over a document store handle.
type Service struct {
	docs *store.Store
}

func New(docs *store.Store) *Service {
	return &Service{docs: docs}
}

// CreateConversation inserts a conversation with an empty last-message
// summary and returns its id.
func (s *Service) CreateConversation(ctx context.Context, participantIDs, itemIDs []string) (string, error) {
	now := time.Now().UnixMilli()
	return s.docs.AddOne(ctx, ConversationsCollection, store.Document{
		"participants":  toAny(participantIDs),
		"itemIds":       toAny(itemIDs),
		"createdAt":     now,
		"lastMessageAt": now,
		"lastMessage":   "",
	})
}

// SendMessage appends a message to the conversation's message collection,
// then refreshes the conversation's last-message summary. The two writes
// are sequential, not atomic: a crash in between leaves the message
// durable and the summary stale, which self-heals on the next send.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, senderName, content string) (string, error) {
	now := time.Now().UnixMilli()
	id, err := s.docs.AddOne(ctx, MessagesCollection(conversationID), store.Document{
		"senderId":   senderID,
		"senderName": senderName,
		"content":    content,
		"timestamp":  now,
		"read":       false,
	})
	if err != nil {
		return "", err
	}

	// The stored content may have been sanitized; preview what was kept.
	stored, err := s.docs.GetOne(ctx, MessagesCollection(conversationID), id)
	if err != nil {
		return "", err
	}
	err = s.docs.UpdateOne(ctx, ConversationsCollection, conversationID, store.Document{
		"lastMessage":   stored.String("content"),
		"lastMessageAt": now,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ConversationsForUser is a live query over the user's conversations,
// sorted by most recent message first. The callback fires immediately
// with the current result and again on every underlying change; the
// returned disposer cancels the subscription.
func (s *Service) ConversationsForUser(ctx context.Context, userID string, cb func([]Conversation)) func() {
	return s.docs.Subscribe(ctx, ConversationsCollection, func(docs []store.Document) {
		conversations := make([]Conversation, 0, len(docs))
		for _, doc := range docs {
			conv := conversationFromDoc(doc)
			if slices.Contains(conv.Participants, userID) {
				conversations = append(conversations, conv)
			}
		}
		sort.SliceStable(conversations, func(i, j int) bool {
			return conversations[i].LastMessageAt > conversations[j].LastMessageAt
		})
		cb(conversations)
	})
}

// MessagesForConversation is a live query over one conversation's
// messages in ascending timestamp order.
func (s *Service) MessagesForConversation(ctx context.Context, conversationID string, cb func([]Message)) func() {
	return s.docs.Subscribe(ctx, MessagesCollection(conversationID), func(docs []store.Document) {
		messages := make([]Message, 0, len(docs))
		for _, doc := range docs {
			messages = append(messages, messageFromDoc(doc))
		}
		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Timestamp < messages[j].Timestamp
		})
		cb(messages)
	})
}

func conversationFromDoc(doc store.Document) Conversation {
	return Conversation{
		ID:            doc.ID(),
		Participants:  doc.Strings("participants"),
		ItemIDs:       doc.Strings("itemIds"),
		CreatedAt:     int64(doc.Number("createdAt")),
		LastMessageAt: int64(doc.Number("lastMessageAt")),
		LastMessage:   doc.String("lastMessage"),
	}
}

func messageFromDoc(doc store.Document) Message {
	read, _ := doc["read"].(bool)
	return Message{
		ID:         doc.ID(),
		SenderID:   doc.String("senderId"),
		SenderName: doc.String("senderName"),
		Content:    doc.String("content"),
		Timestamp:  int64(doc.Number("timestamp")),
		Read:       read,
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
