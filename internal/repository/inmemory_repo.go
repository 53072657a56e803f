package repository

import (
	"context"
	"sort"
	"sync"

	"unsent/internal/domain"
)

// InMemoryStore respalda el modo STORAGE_DRIVER=memory, la CLI y los tests.
// Los tres repositorios comparten el mismo lock.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]domain.Conversation
	messages      map[string][]domain.Message
	pets          map[string]domain.PetProfile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.Message),
		pets:          make(map[string]domain.PetProfile),
	}
}

func (s *InMemoryStore) Conversations() ConversationRepository { return inMemoryConversations{s} }
func (s *InMemoryStore) Messages() MessageRepository           { return inMemoryMessages{s} }
func (s *InMemoryStore) Pets() PetRepository                   { return inMemoryPets{s} }

type inMemoryConversations struct{ s *InMemoryStore }

func (r inMemoryConversations) Create(_ context.Context, c domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.conversations[c.ID] = c
	return nil
}

func (r inMemoryConversations) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return domain.Conversation{}, ErrNotFound
	}
	return c, nil
}

func (r inMemoryConversations) ListByUserID(_ context.Context, userID string) ([]domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Conversation{}
	for _, c := range r.s.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r inMemoryConversations) Update(_ context.Context, c domain.Conversation, prevMessageCount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.conversations[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.MessageCount != prevMessageCount {
		return ErrConflict
	}
	r.s.conversations[c.ID] = c
	return nil
}

type inMemoryMessages struct{ s *InMemoryStore }

func (r inMemoryMessages) Create(_ context.Context, m domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.Analysis != nil {
		a := *m.Analysis
		m.Analysis = &a
	}
	r.s.messages[m.ConversationID] = append(r.s.messages[m.ConversationID], m)
	return nil
}

func (r inMemoryMessages) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored := r.s.messages[conversationID]
	out := make([]domain.Message, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type inMemoryPets struct{ s *InMemoryStore }

func (r inMemoryPets) Upsert(_ context.Context, pet domain.PetProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.pets[pet.UserID] = pet
	return nil
}

func (r inMemoryPets) GetByUserID(_ context.Context, userID string) (domain.PetProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	pet, ok := r.s.pets[userID]
	if !ok {
		return domain.PetProfile{}, ErrNotFound
	}
	return pet, nil
}
