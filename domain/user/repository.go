package user

import (
	"context"
	"errors"

	"github.com/akeren/go-rest-starter/internal/models"
	apperrors "github.com/akeren/go-rest-starter/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository interface {
	// Create persists a new user. Username or email collisions yield a conflict error.
	Create(ctx context.Context, u *models.User) (*models.User, error)
	// FindByID returns a not-found error when no user has the given ID.
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindByUsername returns a not-found error when no user has the given username.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// ExistsByEmail reports whether the email is already registered.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// List returns one page of users ordered by ID and the total user count.
	List(ctx context.Context, limit, offset int) ([]*models.User, int64, error)
	// Update writes only the named fields of u.
	Update(ctx context.Context, u *models.User, fields []string) error
	// Delete removes the user together with the articles they authored and returns the
	// IDs of the removed articles.
	Delete(ctx context.Context, id uint) ([]uint, error)
	// ArticleIDsByAuthor lists the IDs of the articles the user authored.
	ArticleIDsByAuthor(ctx context.Context, id uint) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (ur *userRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := ur.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, NewDuplicateUserError(err)
		}
		return nil, apperrors.NewDatabaseError("unable to create user", err)
	}

	return u, nil
}

func (ur *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User

	if err := ur.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewUserNotFoundError()
		}
		return nil, apperrors.NewDatabaseError("failed to fetch user", err)
	}

	return &u, nil
}

func (ur *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User

	if err := ur.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewUserNotFoundError()
		}
		return nil, apperrors.NewDatabaseError("failed to fetch user", err)
	}

	return &u, nil
}

func (ur *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64

	if err := ur.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, apperrors.NewDatabaseError("failed to look up email", err)
	}

	return count > 0, nil
}

func (ur *userRepository) List(ctx context.Context, limit, offset int) ([]*models.User, int64, error) {
	var (
		users []*models.User
		total int64
	)

	db := ur.db.WithContext(ctx)

	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to count users", err)
	}

	if err := db.Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, apperrors.NewDatabaseError("unable to fetch users", err)
	}

	return users, total, nil
}

func (ur *userRepository) Update(ctx context.Context, u *models.User, fields []string) error {
	if len(fields) == 0 {
		return apperrors.NewInvalidRequestError("no fields to update", nil)
	}

	result := ur.db.WithContext(ctx).Model(u).Select(fields).Updates(u)

	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return NewDuplicateUserError(result.Error)
		}
		return apperrors.NewDatabaseError("unable to update user", result.Error)
	}

	if result.RowsAffected == 0 {
		return NewUserNotFoundError()
	}

	return nil
}

func (ur *userRepository) Delete(ctx context.Context, id uint) ([]uint, error) {
	var articleIDs []uint

	err := ur.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Article{}).Where("author_id = ?", id).Pluck("id", &articleIDs).Error; err != nil {
			return apperrors.NewDatabaseError("unable to list user articles", err)
		}

		if err := tx.Where("author_id = ?", id).Delete(&models.Article{}).Error; err != nil {
			return apperrors.NewDatabaseError("unable to delete user articles", err)
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return apperrors.NewDatabaseError("unable to delete user", result.Error)
		}
		if result.RowsAffected == 0 {
			return NewUserNotFoundError()
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return articleIDs, nil
}

func (ur *userRepository) ArticleIDsByAuthor(ctx context.Context, id uint) ([]uint, error) {
	var ids []uint

	if err := ur.db.WithContext(ctx).Model(&models.Article{}).Where("author_id = ?", id).Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.NewDatabaseError("unable to list user articles", err)
	}

	return ids, nil
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
