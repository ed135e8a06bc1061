// Package memory provides an in-memory configuration store, used in tests
// and as the default for the web runner when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/julien-nc/integration-suitecrm/store"
)

type repo struct {
	mu        *sync.RWMutex
	appValues map[string]string
	userVals  map[string]map[string]string
}

func New() store.Store {
	ans := repo{
		mu:        &sync.RWMutex{},
		appValues: make(map[string]string),
		userVals:  make(map[string]map[string]string),
	}

	return &ans
}

func (r *repo) GetUserValue(_ context.Context, userID, key, def string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vals, ok := r.userVals[userID]
	if !ok {
		return def, nil
	}

	val, ok := vals[key]
	if !ok {
		return def, nil
	}

	return val, nil
}

func (r *repo) SetUserValue(_ context.Context, userID, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	vals, ok := r.userVals[userID]
	if !ok {
		vals = make(map[string]string)
		r.userVals[userID] = vals
	}

	vals[key] = value

	return nil
}

func (r *repo) GetAppValue(_ context.Context, key, def string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.appValues[key]
	if !ok {
		return def, nil
	}

	return val, nil
}

func (r *repo) SetAppValue(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.appValues[key] = value

	return nil
}

func (r *repo) ListUsers(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ans := make([]string, 0, len(r.userVals))
	for userID := range r.userVals {
		ans = append(ans, userID)
	}

	sort.Strings(ans)

	return ans, nil
}

func (r *repo) Close() error {
	return nil
}
