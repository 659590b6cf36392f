package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedIDs ...string) error {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr.ID, excludedIDs) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.mutex.Lock()
	defer repo.db.user.mutex.Unlock()

	for _, u := range repo.db.user.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	users := repo.query()
	user.SortUsers(users, orderings)
	return users, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	if usr, ok := repo.db.user.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.user.mutex.RLock()
	defer repo.db.user.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.user.mutex.Lock()
	defer repo.db.user.mutex.Unlock()

	origUsr, ok := repo.db.user.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	// creation time is immutable
	usr.CreatedAt = origUsr.CreatedAt
	repo.db.user.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.user.mutex.Lock()
	defer repo.db.user.mutex.Unlock()

	if _, ok := repo.db.user.table[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.user.table, id)

	// cascade
	repo.db.assignment.mutex.Lock()
	defer repo.db.assignment.mutex.Unlock()
	for aid, a := range repo.db.assignment.table {
		if a.CreatedBy == id {
			delete(repo.db.assignment.table, aid)
		}
	}
	return nil
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, exclID := range excludedIDs {
		if id == exclID {
			return true
		}
	}
	return false
}
