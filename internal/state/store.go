// Package state provides the namespaced key-value store that backs project
// records, render jobs, analytics and cached audio. The store is the only
// shared mutable resource in the service; concurrent writers to the same
// record are serialized through Update.
package state

import (
	"context"
	"sync"
)

// Well-known namespaces.
const (
	NamespaceProjects   = "projects"
	NamespaceRenderJobs = "renderJobs"
	NamespaceAnalytics  = "analytics"
	NamespaceAudio      = "audio"
	NamespaceEvents     = "events"
)

// UpdateFunc receives the current raw value (ok=false when absent) and
// returns the replacement value. Returning nil leaves the record untouched;
// returning an error aborts the update and is passed through to the caller.
type UpdateFunc func(data []byte, ok bool) (any, error)

// Store is the keyed state contract. An absent key is not an error: Get
// reports ok=false and callers branch explicitly (status endpoints use
// absence to mean "still processing").
type Store interface {
	Get(ctx context.Context, namespace, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, namespace, key string, value any) error
	Delete(ctx context.Context, namespace, key string) error
	// List returns every value in the namespace. Order is unspecified.
	List(ctx context.Context, namespace string) ([][]byte, error)
	// Update runs a read-modify-write cycle serialized per (namespace, key),
	// so interleaved step handlers and status polls cannot clobber each
	// other's writes to one record.
	Update(ctx context.Context, namespace, key string, fn UpdateFunc) error
}

// keyedMutex hands out one mutex per string key. Locks are never reclaimed;
// the key population here (projects, jobs) is bounded by the cleanup sweep
// and job TTLs.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m
}
