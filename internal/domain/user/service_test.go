package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

type memRepo struct {
	byName map[string]*User
}

func newMemRepo() *memRepo {
	return &memRepo{byName: map[string]*User{}}
}

func (r *memRepo) Create(_ context.Context, u *User) error {
	if _, ok := r.byName[u.Username]; ok {
		return ErrUsernameDuplicate
	}
	r.byName[u.Username] = u
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*User, error) {
	for _, u := range r.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *memRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	u, ok := r.byName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	return err == nil, nil
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewServiceWithCost(newMemRepo(), bcrypt.MinCost)

	u, err := svc.Register(ctx, "reader_01", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	got, err := svc.Login(ctx, "reader_01", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewServiceWithCost(newMemRepo(), bcrypt.MinCost)

	_, err := svc.Register(ctx, "abc", "secret123")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(ctx, "reader_01", "short1")
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	_, err = svc.Register(ctx, "reader_01", "onlyletters")
	assert.ErrorIs(t, err, apperrors.ErrWeakPassword)

	_, err = svc.Register(ctx, "reader_01", "secret123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "reader_01", "secret456")
	assert.ErrorIs(t, err, ErrUsernameDuplicate)
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewServiceWithCost(newMemRepo(), bcrypt.MinCost)
	_, err := svc.Register(ctx, "reader_01", "secret123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "reader_01", "wrong1234")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	_, err = svc.Login(ctx, "nobody_x", "secret123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
}
