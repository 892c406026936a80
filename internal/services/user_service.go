package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/franciscosanchezn/gin-user-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserUpdate carries the profile fields a caller wants to change. Nil fields are left alone
type UserUpdate struct {
	Name  *string
	Email *string
}

// UserService is the user store of the API
type UserService interface {
	// CreateUser inserts user, assigning its id. A duplicate email yields ErrEmailTaken
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByID returns ErrUserNotFound when no user has id
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserByEmail returns ErrUserNotFound when no user has email
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers returns one page of users matching opts and the total number of matches
	ListUsers(ctx context.Context, opts ListOptions) ([]models.User, int64, error)
	// UpdateUser applies upd to the user with id
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error)
	// UpdatePassword replaces the password hash of the user with id
	UpdatePassword(ctx context.Context, id, password string) (*models.User, error)
	// DeleteUser removes the user with id
	DeleteUser(ctx context.Context, id string) error
	// Authenticate checks an email/password pair and returns ErrInvalidCredentials on mismatch
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

type userService struct {
	db *gorm.DB
}

// NewUserService creates a gorm backed UserService. The connection should be opened
// with TranslateError so that unique violations surface as gorm.ErrDuplicatedKey
func NewUserService(db *gorm.DB) UserService {
	return &userService{db: db}
}

func (s *userService) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

func (s *userService) ListUsers(ctx context.Context, opts ListOptions) ([]models.User, int64, error) {
	if opts.Limit < 1 || opts.Page < 1 {
		opts = opts.Normalize(DefaultLimit, max(opts.Limit, DefaultLimit))
	}
	order, err := opts.orderBy()
	if err != nil {
		return nil, 0, err
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if q := strings.TrimSpace(opts.Query); q != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(q))+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := make([]models.User, 0, opts.Limit)
	err = query.
		Order(order).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Offset(opts.Offset()).
		Limit(opts.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		user.Email = *upd.Email
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return user, nil
}

func (s *userService) UpdatePassword(ctx context.Context, id, password string) (*models.User, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("update password of %s: %w", id, err)
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("delete user %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// isUniqueViolation recognises duplicate key errors, translated or raw
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
