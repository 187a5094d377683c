package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-booking/internal/domain"
	"github.com/spec-kit/hotel-booking/internal/repository"
)

var _ repository.UserRepository = (*FakeUserRepo)(nil)

// FakeUserRepo is an in-memory user store for development and tests.
type FakeUserRepo struct {
	users    map[string]*domain.User
	emailIDs map[string]string // normalized email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*domain.User),
		emailIDs: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(_ context.Context, user *domain.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	now := time.Now()
	user.Email = domain.NormalizeEmail(user.Email)
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	ur.users[user.ID] = &stored
	ur.emailIDs[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[domain.NormalizeEmail(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *ur.users[id]
	return &out, nil
}

func (ur *FakeUserRepo) CreateLinkedIdentity(ctx context.Context, profile domain.ExternalProfile) (*domain.User, error) {
	if existing, err := ur.FindByEmail(ctx, profile.Email); err == nil {
		return existing, nil
	}
	user := &domain.User{
		Name:            profile.Name,
		Email:           profile.Email,
		Role:            domain.RoleUser,
		Provider:        profile.Provider,
		ProviderSubject: profile.Subject,
	}
	if err := ur.Create(ctx, user); err != nil {
		return nil, err
	}
	out := *user
	return &out, nil
}
