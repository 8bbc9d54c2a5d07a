package main

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/evently/walletpass/formats"
)

// authBackend is an interface for adding and finding HAWK users and
// their permissions
type authBackend interface {
	addAuth(*formats.Authorization) error
	addMonitoringAuth(*formats.Authorization) error
	getAuthByID(id string) (formats.Authorization, error)
	getAuths() map[string]formats.Authorization
}

// inMemoryBackend is an authBackend that loads a config and stores
// that auth info in memory
type inMemoryBackend struct {
	mu    sync.RWMutex
	auths map[string]formats.Authorization
}

// newInMemoryAuthBackend returns an empty inMemoryBackend
func newInMemoryAuthBackend() (backend *inMemoryBackend) {
	return &inMemoryBackend{
		auths: make(map[string]formats.Authorization),
	}
}

// addAuth adds an authorization to the auth map or errors
func (b *inMemoryBackend) addAuth(auth *formats.Authorization) error {
	_, getAuthErr := b.getAuthByID(auth.ID)
	switch getAuthErr {
	case nil:
		return errors.Errorf("authorization id '%s' already defined, duplicates are not permitted", auth.ID)
	case ErrAuthNotFound:
		// this is what we want
	default:
		return errors.Wrapf(getAuthErr, "error finding auth with id '%s'", auth.ID)
	}
	if auth.HawkTimestampValidity <= 0 {
		auth.HawkTimestampValidity = defaultHawkTimestampValidity
	}
	b.mu.Lock()
	b.auths[auth.ID] = *auth
	b.mu.Unlock()
	return nil
}

// getAuthByID returns an authorization if it exists or
// ErrAuthNotFound
func (b *inMemoryBackend) getAuthByID(id string) (formats.Authorization, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if auth, ok := b.auths[id]; ok {
		return auth, nil
	}
	return formats.Authorization{}, ErrAuthNotFound
}

// getAuths returns a copy of the enabled authorizations
func (b *inMemoryBackend) getAuths() map[string]formats.Authorization {
	b.mu.RLock()
	defer b.mu.RUnlock()
	auths := make(map[string]formats.Authorization, len(b.auths))
	for id, auth := range b.auths {
		auths[id] = auth
	}
	return auths
}

// addMonitoringAuth adds an authorization to enable the
// monitoring endpoint
func (b *inMemoryBackend) addMonitoringAuth(monitoring *formats.Authorization) error {
	_, err := b.getAuthByID(monitorAuthID)
	switch err {
	case ErrAuthNotFound:
	case nil:
		return errors.Errorf("user 'monitor' is reserved for monitoring, duplication is not permitted")
	default:
		return errors.Errorf("error fetching 'monitor' auth: %q", err)
	}
	monitoring.ID = monitorAuthID
	monitoring.Signers = nil
	if monitoring.HawkTimestampValidity <= 0 {
		monitoring.HawkTimestampValidity = defaultHawkTimestampValidity
	}
	return b.addAuth(monitoring)
}
