package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/texperia/registration/models"
	"github.com/texperia/registration/repositories"
	"github.com/texperia/registration/utils"
)

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.calls++
	return fn(nil)
}

type fakeUsers struct {
	users     []models.User
	createErr error
}

func (f *fakeUsers) Create(_ context.Context, _ repositories.SQLExecutor, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	user.ID = len(f.users) + 1
	f.users = append(f.users, *user)
	return nil
}

func (f *fakeUsers) GetByID(context.Context, int) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUsers) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, repositories.ErrUserNotFound
}

func (f *fakeUsers) Delete(context.Context, repositories.SQLExecutor, int) error { return nil }

func (f *fakeUsers) DeleteByRole(_ context.Context, _ repositories.SQLExecutor, role models.UserRole) (int64, error) {
	kept := f.users[:0]
	var n int64
	for _, u := range f.users {
		if u.Role == role {
			n++
			continue
		}
		kept = append(kept, u)
	}
	f.users = kept
	return n, nil
}

func TestMain(m *testing.M) {
	utils.BcryptCost = bcrypt.MinCost
	m.Run()
}

func TestSeedAdmins_RecreatesAllowListedAccounts(t *testing.T) {
	users := &fakeUsers{users: []models.User{
		{ID: 1, Email: "old@texperia.in", Role: models.RoleAdmin},
		{ID: 2, Email: "student@college.edu", Role: models.RoleStudent},
	}}
	tx := &fakeTx{}

	deleted, err := seedAdmins(context.Background(), tx, users,
		[]string{"Chief@Texperia.in", "comic@texperia.in"},
		map[string]string{"chief@texperia.in": "s3cret!"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, tx.calls)
	require.Len(t, users.users, 3)

	byEmail := map[string]models.User{}
	for _, u := range users.users {
		byEmail[u.Email] = u
	}
	assert.Contains(t, byEmail, "student@college.edu")

	chief := byEmail["chief@texperia.in"]
	assert.Equal(t, models.RoleAdmin, chief.Role)
	ok, err := utils.CheckPasswordHash("s3cret!", chief.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	comic := byEmail["comic@texperia.in"]
	ok, err = utils.CheckPasswordHash(defaultAdminPassword, comic.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeedAdmins_CreateFailure(t *testing.T) {
	users := &fakeUsers{createErr: repositories.ErrUserEmailConflict}

	_, err := seedAdmins(context.Background(), &fakeTx{}, users, []string{"chief@texperia.in"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repositories.ErrUserEmailConflict))
}
