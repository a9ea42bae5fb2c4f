package auth

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"gcpanel/internal/metrics"
	"gcpanel/internal/model"
)

// PrincipalCache keeps users resolved from access tokens, keyed by token ID.
type PrincipalCache struct {
	lru *expirable.LRU[string, model.User]
}

// NewPrincipalCache creates a cache of at most size users, each kept for ttl.
func NewPrincipalCache(size int, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{lru: expirable.NewLRU[string, model.User](size, nil, ttl)}
}

// Get returns a copy of the cached user for tokenID.
func (c *PrincipalCache) Get(tokenID string) (*model.User, bool) {
	if c == nil {
		return nil, false
	}
	u, ok := c.lru.Get(tokenID)
	metrics.ObserveCacheLookup("principal", ok)
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *PrincipalCache) Add(tokenID string, u *model.User) {
	if c == nil || u == nil {
		return
	}
	c.lru.Add(tokenID, *u)
}

func (c *PrincipalCache) Remove(tokenID string) {
	if c == nil {
		return
	}
	c.lru.Remove(tokenID)
}

// Purge drops every entry, used after role or status changes.
func (c *PrincipalCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
