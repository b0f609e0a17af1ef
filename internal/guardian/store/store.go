// Package store is the durable side of the engine: users with hashed
// credentials and the role/permission bindings the evaluator consults
// on cache miss.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/guardian/internal/guardian/model"
	"github.com/kart-io/guardian/pkg/security/authz"
	guarderrors "github.com/kart-io/guardian/pkg/utils/errors"
)

// Store implements the durable lookup and credential verification
// contracts on top of gorm.
type Store struct {
	db *gorm.DB
}

// New wraps an existing gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open opens a sqlite-backed store and migrates the schema. dsn may be
// a file path or ":memory:".
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err).WithMessage("failed to open database")
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.Permission{},
		&model.UserRole{},
		&model.RolePermission{},
	); err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err).WithMessage("failed to migrate schema")
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateUser stores a user with a bcrypt-hashed credential.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	if username == "" || password == "" {
		return nil, guarderrors.ErrInvalidParam.WithMessage("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, guarderrors.ErrInternal.WithCause(err).WithMessage("failed to hash password")
	}

	user := &model.User{Username: username, Password: string(hash), Active: true}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return user, nil
}

// GetUser fetches a user by username.
func (s *Store) GetUser(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, guarderrors.ErrUserNotFound
	}
	if err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return &user, nil
}

// Verify checks the subject's credential against the stored bcrypt
// hash. An unknown or inactive subject is a mismatch, not an error.
func (s *Store) Verify(ctx context.Context, subject, credential string) (bool, error) {
	user, err := s.GetUser(ctx, subject)
	if err != nil {
		if errors.Is(err, guarderrors.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	if !user.Active {
		return false, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(credential)) == nil, nil
}

// UpdatePassword replaces the subject's stored hash.
func (s *Store) UpdatePassword(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return guarderrors.ErrInternal.WithCause(err).WithMessage("failed to hash password")
	}

	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Update("password", string(hash))
	if res.Error != nil {
		return guarderrors.ErrDatabase.WithCause(res.Error)
	}
	if res.RowsAffected == 0 {
		return guarderrors.ErrUserNotFound
	}
	return nil
}

// EnsureRole creates the role if it does not exist.
func (s *Store) EnsureRole(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err == nil {
		return &role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}

	role = model.Role{Name: name}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return &role, nil
}

// EnsurePermission creates the permission code if it does not exist.
func (s *Store) EnsurePermission(ctx context.Context, code string) (*model.Permission, error) {
	var perm model.Permission
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&perm).Error
	if err == nil {
		return &perm, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}

	perm = model.Permission{Code: code}
	if err := s.db.WithContext(ctx).Create(&perm).Error; err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return &perm, nil
}

// GrantRole binds a role to a user, creating the role as needed.
func (s *Store) GrantRole(ctx context.Context, username, roleName, grantedBy string) error {
	user, err := s.GetUser(ctx, username)
	if err != nil {
		return err
	}
	role, err := s.EnsureRole(ctx, roleName)
	if err != nil {
		return err
	}

	binding := model.UserRole{UserID: user.ID, RoleID: role.ID, GrantedBy: grantedBy}
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", user.ID, role.ID).
		FirstOrCreate(&binding).Error
	if err != nil {
		return guarderrors.ErrDatabase.WithCause(err)
	}
	return nil
}

// GrantPermission binds a permission code to a role, creating both as
// needed.
func (s *Store) GrantPermission(ctx context.Context, roleName, code string) error {
	role, err := s.EnsureRole(ctx, roleName)
	if err != nil {
		return err
	}
	perm, err := s.EnsurePermission(ctx, code)
	if err != nil {
		return err
	}

	binding := model.RolePermission{RoleID: role.ID, PermissionID: perm.ID}
	err = s.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).
		FirstOrCreate(&binding).Error
	if err != nil {
		return guarderrors.ErrDatabase.WithCause(err)
	}
	return nil
}

// HasRole reports whether the subject is bound to the named role.
func (s *Store) HasRole(ctx context.Context, subject, role string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserRole{}).
		Joins("JOIN guardian_user ON guardian_user.id = guardian_user_role.user_id").
		Joins("JOIN guardian_role ON guardian_role.id = guardian_user_role.role_id").
		Where("guardian_user.username = ? AND guardian_role.name = ?", subject, role).
		Count(&count).Error
	if err != nil {
		return false, guarderrors.ErrDatabase.WithCause(err)
	}
	return count > 0, nil
}

// HasPermission reports whether any of the subject's roles carries a
// code granting the requested permission. Held codes are matched with
// the full wildcard grammar, so a stored "DOC:*" grants "DOC:WRITE".
func (s *Store) HasPermission(ctx context.Context, subject, permission string) (bool, error) {
	codes, err := s.SubjectPermissions(ctx, subject)
	if err != nil {
		return false, err
	}

	resource, action, wellFormed := strings.Cut(permission, ":")
	for _, code := range codes {
		if code == permission {
			return true, nil
		}
		if wellFormed && authz.Match(code, resource, action) {
			return true, nil
		}
	}
	return false, nil
}

// SubjectPermissions returns the permission codes carried by the
// subject's roles.
func (s *Store) SubjectPermissions(ctx context.Context, subject string) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).Model(&model.RolePermission{}).
		Joins("JOIN guardian_permission ON guardian_permission.id = guardian_role_permission.permission_id").
		Joins("JOIN guardian_user_role ON guardian_user_role.role_id = guardian_role_permission.role_id").
		Joins("JOIN guardian_user ON guardian_user.id = guardian_user_role.user_id").
		Where("guardian_user.username = ?", subject).
		Pluck("guardian_permission.code", &codes).Error
	if err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return codes, nil
}

// SubjectRoles returns the names of the subject's bound roles.
func (s *Store) SubjectRoles(ctx context.Context, subject string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&model.UserRole{}).
		Joins("JOIN guardian_user ON guardian_user.id = guardian_user_role.user_id").
		Joins("JOIN guardian_role ON guardian_role.id = guardian_user_role.role_id").
		Where("guardian_user.username = ?", subject).
		Pluck("guardian_role.name", &names).Error
	if err != nil {
		return nil, guarderrors.ErrDatabase.WithCause(err)
	}
	return names, nil
}
