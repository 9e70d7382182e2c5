package cache

import (
	"testing"

	"github.com/EcrTech/FL-sub005/internal/domain/collection"
)

func TestTerminalStatus_OnlyTerminal(t *testing.T) {
	c := NewTerminalStatus()
	c.Put(collection.Transaction{ClientRef: "P1", Status: collection.StatusPending})
	if _, ok := c.Get("P1"); ok {
		t.Fatalf("pending transaction must not be cached")
	}

	c.Put(collection.Transaction{ClientRef: "S1", Status: collection.StatusSuccess, UTR: "U1"})
	got, ok := c.Get("S1")
	if !ok || got.UTR != "U1" {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}
