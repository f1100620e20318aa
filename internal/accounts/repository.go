package accounts

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pooriya-cloudS/mediqe/pkg/database"
	"github.com/pooriya-cloudS/mediqe/pkg/logger"
	"github.com/pooriya-cloudS/mediqe/pkg/types"
)

// Repository persists users and their profiles
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new accounts repository
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log,
	}
}

const userColumns = `id, username, email, password_hash, role, first_name, last_name,
	   gender, phone, address, is_active, is_verified, created_at, updated_at`

// CreateUser inserts a new user
func (r *Repository) CreateUser(user *types.User) error {
	query := `
		INSERT INTO users (
			id, username, email, password_hash, role, first_name, last_name,
			gender, phone, address, is_active, is_verified, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.FirstName,
		user.LastName,
		user.Gender,
		user.Phone,
		user.Address,
		user.IsActive,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *Repository) scanUser(row *sql.Row) (*types.User, error) {
	user := &types.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Gender,
		&user.Phone,
		&user.Address,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(id string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetUserByEmail retrieves a user by email
func (r *Repository) GetUserByEmail(email string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRow(query, email))
}

// EmailExists reports whether a user with the given email already exists
func (r *Repository) EmailExists(email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ListUsers retrieves users, optionally filtered by role
func (r *Repository) ListUsers(role types.UserRole) ([]*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []interface{}{}

	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		user := &types.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.FirstName,
			&user.LastName,
			&user.Gender,
			&user.Phone,
			&user.Address,
			&user.IsActive,
			&user.IsVerified,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser applies a partial update to a user
func (r *Repository) UpdateUser(id string, updates *types.UserUpdates) error {
	setParts := []string{}
	args := []interface{}{}
	argIndex := 1

	if updates.Username != nil {
		setParts = append(setParts, fmt.Sprintf("username = $%d", argIndex))
		args = append(args, *updates.Username)
		argIndex++
	}

	if updates.FirstName != nil {
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", argIndex))
		args = append(args, *updates.FirstName)
		argIndex++
	}

	if updates.LastName != nil {
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", argIndex))
		args = append(args, *updates.LastName)
		argIndex++
	}

	if updates.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", argIndex))
		args = append(args, *updates.Phone)
		argIndex++
	}

	if updates.Address != nil {
		setParts = append(setParts, fmt.Sprintf("address = $%d", argIndex))
		args = append(args, *updates.Address)
		argIndex++
	}

	if updates.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *updates.IsActive)
		argIndex++
	}

	if len(setParts) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided.")
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(setParts, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", id).Error("Failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}

	return nil
}

// DeactivateUser marks a user as inactive. Accounts are never hard deleted
// because clinical rows reference them.
func (r *Repository) DeactivateUser(id string) error {
	result, err := r.db.Exec(`UPDATE users SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", id).Error("Failed to deactivate user")
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "User not found.")
	}

	return nil
}

// GetProfile retrieves a user's profile
func (r *Repository) GetProfile(userID string) (*types.UserProfile, error) {
	query := `
		SELECT user_id, insurance_number, insurance_company, blood_type, chronic_conditions,
		       license_number, specialty, bio, years_experience, rating, verified
		FROM user_profiles
		WHERE user_id = $1`

	profile := &types.UserProfile{}
	err := r.db.QueryRow(query, userID).Scan(
		&profile.UserID,
		&profile.InsuranceNumber,
		&profile.InsuranceCompany,
		&profile.BloodType,
		&profile.ChronicConditions,
		&profile.LicenseNumber,
		&profile.Specialty,
		&profile.Bio,
		&profile.YearsExperience,
		&profile.Rating,
		&profile.Verified,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.NewNotFoundError(types.ErrCodeNotFound, "Profile not found.")
		}
		r.logger.WithError(err).WithField("user_id", userID).Error("Failed to get profile")
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpsertProfile creates or replaces a user's profile
func (r *Repository) UpsertProfile(profile *types.UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			user_id, insurance_number, insurance_company, blood_type, chronic_conditions,
			license_number, specialty, bio, years_experience, rating, verified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			insurance_number = EXCLUDED.insurance_number,
			insurance_company = EXCLUDED.insurance_company,
			blood_type = EXCLUDED.blood_type,
			chronic_conditions = EXCLUDED.chronic_conditions,
			license_number = EXCLUDED.license_number,
			specialty = EXCLUDED.specialty,
			bio = EXCLUDED.bio,
			years_experience = EXCLUDED.years_experience,
			rating = EXCLUDED.rating,
			verified = EXCLUDED.verified`

	_, err := r.db.Exec(query,
		profile.UserID,
		profile.InsuranceNumber,
		profile.InsuranceCompany,
		profile.BloodType,
		profile.ChronicConditions,
		profile.LicenseNumber,
		profile.Specialty,
		profile.Bio,
		profile.YearsExperience,
		profile.Rating,
		profile.Verified,
	)

	if err != nil {
		r.logger.WithError(err).WithField("user_id", profile.UserID).Error("Failed to upsert profile")
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}
