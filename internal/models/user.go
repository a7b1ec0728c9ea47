package models

import "time"

// UserRole represents the portal roles. Student and alumni accounts are
// self-registered; staff and admin accounts are provisioned by an admin.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAlumni  UserRole = "alumni"
	RoleStaff   UserRole = "staff"
	RoleAdmin   UserRole = "admin"
)

// SelfRegisterRoles lists the roles allowed through public registration.
var SelfRegisterRoles = map[UserRole]bool{
	RoleStudent: true,
	RoleAlumni:  true,
}

// User represents an application user stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	StudentID      *string    `db:"student_id" json:"student_id,omitempty"`
	Email          string     `db:"email" json:"email"`
	Username       *string    `db:"username" json:"username,omitempty"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	MiddleName     *string    `db:"middle_name" json:"middle_name,omitempty"`
	Role           UserRole   `db:"role" json:"role"`
	Course         *string    `db:"course" json:"course,omitempty"`
	YearLevel      *string    `db:"year_level" json:"year_level,omitempty"`
	GraduationYear *int       `db:"graduation_year" json:"graduation_year,omitempty"`
	ContactNumber  *string    `db:"contact_number" json:"contact_number,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	Active         bool       `db:"active" json:"active"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName renders the display name used in notifications and exports.
func (u User) FullName() string {
	if u.MiddleName != nil && *u.MiddleName != "" {
		return u.FirstName + " " + *u.MiddleName + " " + u.LastName
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// CreateUserRequest is the admin user-provisioning payload. Unlike public
// registration it may assign any role, including staff and admin.
type CreateUserRequest struct {
	Email         string   `json:"email" validate:"required,email"`
	Password      string   `json:"password" validate:"required,min=6"`
	FirstName     string   `json:"first_name" validate:"required"`
	LastName      string   `json:"last_name" validate:"required"`
	MiddleName    *string  `json:"middle_name,omitempty"`
	Role          UserRole `json:"role" validate:"required,oneof=student alumni staff admin"`
	StudentID     *string  `json:"student_id,omitempty"`
	Course        *string  `json:"course,omitempty"`
	YearLevel     *string  `json:"year_level,omitempty"`
	ContactNumber *string  `json:"contact_number,omitempty"`
	Address       *string  `json:"address,omitempty"`
}

// UpdateUserRequest is the admin user-edit payload.
type UpdateUserRequest struct {
	FirstName     *string   `json:"first_name,omitempty"`
	LastName      *string   `json:"last_name,omitempty"`
	MiddleName    *string   `json:"middle_name,omitempty"`
	Role          *UserRole `json:"role,omitempty" validate:"omitempty,oneof=student alumni staff admin"`
	Course        *string   `json:"course,omitempty"`
	YearLevel     *string   `json:"year_level,omitempty"`
	ContactNumber *string   `json:"contact_number,omitempty"`
	Address       *string   `json:"address,omitempty"`
	Active        *bool     `json:"active,omitempty"`
}

// UpdateProfileRequest is the self-service profile payload. Role and
// activation state are not editable here.
type UpdateProfileRequest struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	MiddleName    *string `json:"middle_name,omitempty"`
	Course        *string `json:"course,omitempty"`
	YearLevel     *string `json:"year_level,omitempty"`
	ContactNumber *string `json:"contact_number,omitempty"`
	Address       *string `json:"address,omitempty"`
}
