package db

import (
	"context"
	"errors"
	"fmt"

	"favorx-backend-go/internal/models"
	"favorx-backend-go/pkg/database"
)

// userRepository implements UserRepository on top of the Backend.
type userRepository struct {
	backend *Backend
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(backend *Backend) UserRepository {
	return &userRepository{backend: backend}
}

// Create adds a new user document. user.UID is used as the document ID.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		return errors.New("user UID cannot be empty for Create operation")
	}
	if err := r.backend.CreateDocument(ctx, models.CollectionUsers, user.UID, user.ToMap()); err != nil {
		return fmt.Errorf("failed to create user with UID '%s': %w", user.UID, err)
	}
	user.ID = user.UID
	return nil
}

func (r *userRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for GetByUID operation")
	}
	doc, err := r.backend.resolveUserDoc(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("user with UID '%s' not found: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with UID '%s': %w", uid, err)
	}
	user := models.UserFromDocument(doc)
	if user.UID == "" {
		user.UID = uid
	}
	return user, nil
}

func (r *userRepository) FindByUIDField(ctx context.Context, uid string) (*models.User, error) {
	return r.findOne(ctx, "uid", uid)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *userRepository) findOne(ctx context.Context, field, value string) (*models.User, error) {
	docs, err := r.backend.QueryCollection(ctx, models.CollectionUsers, field, "==", value)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by %s: %w", field, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("user with %s '%s' not found: %w", field, value, ErrNotFound)
	}
	return models.UserFromDocument(docs[0]), nil
}

// UpdateFields changes the given fields of the user document docID.
func (r *userRepository) UpdateFields(ctx context.Context, docID string, fields map[string]interface{}) error {
	if docID == "" {
		return errors.New("user document ID cannot be empty for Update operation")
	}
	if err := r.backend.UpdateDocument(ctx, models.CollectionUsers, docID, fields); err != nil {
		return fmt.Errorf("failed to update user '%s': %w", docID, err)
	}
	return nil
}

func (r *userRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *userRepository) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

func (r *userRepository) exists(ctx context.Context, field, value string) (bool, error) {
	docs, err := r.backend.Query(ctx, models.CollectionUsers, database.Filter{Field: field, Op: "==", Value: value})
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", field, err)
	}
	return len(docs) > 0, nil
}
