package cache

import (
	"github.com/EcrTech/FL-sub005/internal/domain/collection"

	gocache "github.com/patrickmn/go-cache"
)

// TerminalStatus keeps collection transactions that can no longer change.
// Entries never expire; non-terminal transactions are refused on Put.
type TerminalStatus struct{ c *gocache.Cache }

var _ collection.StatusCache = (*TerminalStatus)(nil)

func NewTerminalStatus() *TerminalStatus {
	return &TerminalStatus{c: gocache.New(gocache.NoExpiration, 0)}
}

func (s *TerminalStatus) Get(clientRef string) (collection.Transaction, bool) {
	v, ok := s.c.Get(clientRef)
	if !ok {
		return collection.Transaction{}, false
	}
	t, ok := v.(collection.Transaction)
	return t, ok
}

func (s *TerminalStatus) Put(t collection.Transaction) {
	if !t.Status.Terminal() {
		return
	}
	s.c.Set(t.ClientRef, t, gocache.NoExpiration)
}

func (s *TerminalStatus) Len() int { return s.c.ItemCount() }
