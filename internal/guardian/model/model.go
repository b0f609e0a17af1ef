// Package model defines the persistence models backing the durable
// lookup store.
package model

import "time"

// User is a principal with a hashed credential.
type User struct {
	ID        uint      `gorm:"primarykey"`
	Username  string    `gorm:"column:username;uniqueIndex;size:64;not null"`
	Password  string    `gorm:"column:password;size:128;not null"` // bcrypt hash
	Nickname  string    `gorm:"column:nickname;size:64"`
	Email     string    `gorm:"column:email;size:128"`
	Active    bool      `gorm:"column:active;default:true"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName overrides the table name used by User.
func (User) TableName() string {
	return "guardian_user"
}

// Role is a named permission grouping.
type Role struct {
	ID        uint      `gorm:"primarykey"`
	Name      string    `gorm:"column:name;uniqueIndex;size:64;not null"`
	Remark    string    `gorm:"column:remark;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Role) TableName() string {
	return "guardian_role"
}

// Permission is a "RESOURCE:ACTION" grant.
type Permission struct {
	ID        uint      `gorm:"primarykey"`
	Code      string    `gorm:"column:code;uniqueIndex;size:128;not null"`
	Remark    string    `gorm:"column:remark;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "guardian_permission"
}

// UserRole binds a user to a role.
type UserRole struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"column:user_id;index:idx_user_role,unique;not null"`
	RoleID    uint      `gorm:"column:role_id;index:idx_user_role,unique;not null"`
	GrantedBy string    `gorm:"column:granted_by;size:64"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UserRole) TableName() string {
	return "guardian_user_role"
}

// RolePermission binds a role to a permission.
type RolePermission struct {
	ID           uint      `gorm:"primarykey"`
	RoleID       uint      `gorm:"column:role_id;index:idx_role_perm,unique;not null"`
	PermissionID uint      `gorm:"column:permission_id;index:idx_role_perm,unique;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (RolePermission) TableName() string {
	return "guardian_role_permission"
}
