package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RoleAdmin        UserRole = "Admin"
	RoleDoctor       UserRole = "Doctor"
	RolePatient      UserRole = "Patient"
	RoleNurse        UserRole = "Nurse"
	RoleReceptionist UserRole = "Receptionist"
)

// IsValid reports whether the role is a known member of the role enum
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient, RoleNurse, RoleReceptionist:
		return true
	}
	return false
}

// IsStaff reports whether the role bypasses per-object ownership checks.
// Admins and receptionists act on behalf of any patient or doctor.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleReceptionist
}

// User represents a system user. Email is the login key.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Gender       string    `json:"gender" db:"gender"`
	Phone        string    `json:"phone" db:"phone"`
	Address      string    `json:"address" db:"address"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsVerified   bool      `json:"is_verified" db:"is_verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserProfile holds the optional one-to-one profile for a user
type UserProfile struct {
	UserID            string  `json:"user_id" db:"user_id"`
	InsuranceNumber   string  `json:"insurance_number" db:"insurance_number"`
	InsuranceCompany  string  `json:"insurance_company" db:"insurance_company"`
	BloodType         string  `json:"blood_type" db:"blood_type"`
	ChronicConditions string  `json:"chronic_conditions" db:"chronic_conditions"`
	LicenseNumber     string  `json:"license_number" db:"license_number"`
	Specialty         string  `json:"specialty" db:"specialty"`
	Bio               string  `json:"bio" db:"bio"`
	YearsExperience   int     `json:"years_experience" db:"years_experience"`
	Rating            float64 `json:"rating" db:"rating"`
	Verified          bool    `json:"verified" db:"verified"`
}

// UserClaims represents the authenticated principal extracted from a JWT
type UserClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// RegistrationRequest represents user registration data
type RegistrationRequest struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Role      UserRole `json:"role"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Gender    string   `json:"gender"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
}

// Credentials represents user login credentials
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserUpdates represents a partial update to user information
type UserUpdates struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}
