package memory

import (
	"context"
	"strings"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

type userRepo struct{ v *view }

func (r userRepo) Create(_ context.Context, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var id uint64
	err := r.v.write("users.create", func(st *state, now time.Time) error {
		for _, u := range st.users {
			if u.Email == email {
				return store.ErrDuplicate
			}
		}
		id = st.nextID()
		st.users[id] = model.User{ID: id, Email: email, PasswordHash: passwordHash, Role: role, IsActive: true, CreatedAt: now, UpdatedAt: now}
		return nil
	})
	return id, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out model.User
	err := r.v.read(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				out = u
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r userRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	var out model.User
	err := r.v.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

type tokenRepo struct{ v *view }

func (r tokenRepo) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return r.v.write("refresh_tokens.store", func(st *state, now time.Time) error {
		st.tokens[tokenHash] = model.RefreshToken{ID: st.nextID(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: now}
		return nil
	})
}

func (r tokenRepo) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	var uid uint64
	err := r.v.read(func(st *state) error {
		t, ok := st.tokens[tokenHash]
		if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
			return store.ErrNotFound
		}
		uid = t.UserID
		return nil
	})
	return uid, err
}

func (r tokenRepo) RevokeByHash(_ context.Context, tokenHash string) error {
	return r.v.write("refresh_tokens.revoke", func(st *state, now time.Time) error {
		t, ok := st.tokens[tokenHash]
		if ok && t.RevokedAt == nil {
			ts := now
			t.RevokedAt = &ts
			st.tokens[tokenHash] = t
		}
		return nil
	})
}

func (r tokenRepo) RevokeAllForUser(_ context.Context, userID uint64) error {
	return r.v.write("refresh_tokens.revoke_all", func(st *state, now time.Time) error {
		for h, t := range st.tokens {
			if t.UserID == userID && t.RevokedAt == nil {
				ts := now
				t.RevokedAt = &ts
				st.tokens[h] = t
			}
		}
		return nil
	})
}
