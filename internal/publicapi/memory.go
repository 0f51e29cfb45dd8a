package publicapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRepo struct {
	mu            sync.Mutex
	nextID        int64
	conversations map[[2]string]string
	messages      map[string][]Message
}

// NewMemoryRepo keeps conversations in process memory.
func NewMemoryRepo() Repo {
	return &memoryRepo{
		conversations: map[[2]string]string{},
		messages:      map[string][]Message{},
	}
}

func (r *memoryRepo) EnsureConversation(_ context.Context, sessionToken, assistant string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{sessionToken, assistant}
	if id, ok := r.conversations[key]; ok {
		return id, nil
	}
	id := uuid.NewString()
	r.conversations[key] = id
	return id, nil
}

func (r *memoryRepo) SaveMessage(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

func (r *memoryRepo) GetHistory(_ context.Context, conversationID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages[conversationID]...), nil
}
