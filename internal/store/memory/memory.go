// Package memory is an in-memory Repository used by unit tests and local
// development without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BloodyDerby/biosentiers-backend/internal/store/core"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]*core.User         // by internal id
	installations map[string]*core.Installation // by internal id
	excursions    map[string]*core.Excursion
	participants  map[string][]*core.Participant // by excursion id
	events        []*core.InstallationEvent
}

func New() *Store {
	return &Store{
		users:         make(map[string]*core.User),
		installations: make(map[string]*core.Installation),
		excursions:    make(map[string]*core.Excursion),
		participants:  make(map[string][]*core.Participant),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

func (s *Store) Users() core.UserRepository                 { return (*userRepo)(s) }
func (s *Store) Installations() core.InstallationRepository { return (*installationRepo)(s) }
func (s *Store) Excursions() core.ExcursionRepository       { return (*excursionRepo)(s) }

// ─── Users ───

type userRepo Store

func (r *userRepo) GetByEmail(_ context.Context, email string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) GetByAPIID(_ context.Context, apiID string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.APIID == apiID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) List(context.Context) ([]*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *userRepo) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID != excludeID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *userRepo) Create(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *userRepo) Update(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return core.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *userRepo) SaveLogin(_ context.Context, id string, at time.Time) (*core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	u.LoginCount++
	t := at
	u.LastLoginAt = &t
	u.LastActiveAt = &t
	u.UpdatedAt = at
	clone := *u
	return &clone, nil
}

func (r *userRepo) IncrementPasswordResetCount(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	u.PasswordResetCount++
	return u.PasswordResetCount, nil
}

// ─── Installations ───

type installationRepo Store

func (r *installationRepo) GetByAPIID(_ context.Context, apiID string) (*core.Installation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, i := range r.installations {
		if i.APIID == apiID {
			clone := *i
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *installationRepo) Create(_ context.Context, i *core.Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	i.CreatedAt, i.UpdatedAt = now, now
	clone := *i
	r.installations[i.ID] = &clone
	return nil
}

func (r *installationRepo) Update(_ context.Context, i *core.Installation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.installations[i.ID]; !ok {
		return core.ErrNotFound
	}
	i.UpdatedAt = time.Now().UTC()
	clone := *i
	r.installations[i.ID] = &clone
	return nil
}

func (r *installationRepo) AddEvent(_ context.Context, e *core.InstallationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.installations[e.InstallationID]
	if !ok {
		return core.ErrNotFound
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	clone := *e
	r.events = append(r.events, &clone)
	inst.EventsCount++
	return nil
}

// ─── Excursions ───

type excursionRepo Store

func (r *excursionRepo) GetByAPIID(_ context.Context, apiID string) (*core.Excursion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.excursions {
		if e.APIID == apiID {
			clone := *e
			return &clone, nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *excursionRepo) ListByCreator(_ context.Context, creatorID string) ([]*core.Excursion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Excursion
	for _, e := range r.excursions {
		if e.CreatorID == creatorID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *excursionRepo) List(context.Context) ([]*core.Excursion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Excursion, 0, len(r.excursions))
	for _, e := range r.excursions {
		clone := *e
		out = append(out, &clone)
	}
	return out, nil
}

func (r *excursionRepo) Create(_ context.Context, e *core.Excursion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	clone := *e
	r.excursions[e.ID] = &clone
	return nil
}

func (r *excursionRepo) Update(_ context.Context, e *core.Excursion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.excursions[e.ID]; !ok {
		return core.ErrNotFound
	}
	e.UpdatedAt = time.Now().UTC()
	clone := *e
	r.excursions[e.ID] = &clone
	return nil
}

func (r *excursionRepo) AddParticipant(_ context.Context, p *core.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.excursions[p.ExcursionID]; !ok {
		return core.ErrNotFound
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()
	clone := *p
	r.participants[p.ExcursionID] = append(r.participants[p.ExcursionID], &clone)
	return nil
}

func (r *excursionRepo) ListParticipants(_ context.Context, excursionID string) ([]*core.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.participants[excursionID]
	out := make([]*core.Participant, 0, len(src))
	for _, p := range src {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (r *excursionRepo) RemoveParticipant(_ context.Context, excursionID, apiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.participants[excursionID]
	for i, p := range list {
		if p.APIID == apiID {
			r.participants[excursionID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}
