package store

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-passgate/passgate/internal/config"
	"github.com/go-passgate/passgate/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string, cfg *config.Config) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.BearerToken{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	if err := store.seedData(cfg); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// seedData creates the default admin principal on first run.
func (s *Store) seedData(cfg *config.Config) error {
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount > 0 {
		return nil
	}

	password := ""
	if cfg != nil {
		password = cfg.DefaultAdminPassword
	}
	generated := password == ""
	if generated {
		var err error
		password, err = generateRandomPassword(16)
		if err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "admin",
		Email:        "admin@localhost",
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := s.db.Create(user).Error; err != nil {
		return err
	}
	if generated {
		log.Printf("Created default user: admin / %s (role: admin)", password)
	} else {
		log.Printf("Created default user: admin (role: admin)")
	}

	return nil
}

// User operations

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail finds a user by email address
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByExternalID finds a user by their external ID and auth source
func (s *Store) GetUserByExternalID(externalID, authSource string) (*models.User, error) {
	var user models.User
	err := s.db.Where("external_id = ? AND auth_source = ?", externalID, authSource).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}

// UpdateUser updates an existing user
func (s *Store) UpdateUser(user *models.User) error {
	return s.db.Save(user).Error
}

// DeleteUser deletes a user by ID
func (s *Store) DeleteUser(id string) error {
	return s.db.Delete(&models.User{}, "id = ?", id).Error
}

// UpsertExternalUser creates or updates a user from external authentication
// (remote HTTP API or an OAuth provider).
func (s *Store) UpsertExternalUser(
	username, externalID, authSource, email, fullName, avatarURL string,
) (*models.User, error) {
	var user models.User

	err := s.db.Where("external_id = ? AND auth_source = ?", externalID, authSource).
		First(&user).
		Error

	if err == nil {
		// User exists - check if username changed
		if user.Username != username {
			var conflicting models.User
			conflictErr := s.db.Where("username = ? AND id != ?", username, user.ID).
				First(&conflicting).
				Error
			if conflictErr == nil {
				return nil, ErrUsernameConflict
			}
			if !errors.Is(conflictErr, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check username: %w", conflictErr)
			}
		}

		user.Username = username
		user.Email = email
		user.FullName = fullName
		if avatarURL != "" {
			user.AvatarURL = avatarURL
		}
		if err := s.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update external user: %w", err)
		}
		return &user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to query external user: %w", err)
	}

	// User doesn't exist - check if username is available
	var existing models.User
	err = s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	user = models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: "", // No local password for external users
		Role:         "user",
		ExternalID:   externalID,
		AuthSource:   authSource,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    avatarURL,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create external user: %w", err)
	}

	return &user, nil
}

// Session operations

// CreateSession inserts a new session row. Creation is a single atomic
// insert; an aborted request leaves no partial state.
func (s *Store) CreateSession(session *models.Session) error {
	return s.db.Create(session).Error
}

// GetSessionByID retrieves a session by its public identifier half.
func (s *Store) GetSessionByID(id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession extends a session's expiry (sliding mode) and records
// last-seen time.
func (s *Store) TouchSession(id string, expiresAt, lastSeenAt time.Time) error {
	return s.db.Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expires_at":   expiresAt,
			"last_seen_at": lastSeenAt,
		}).Error
}

// DeleteSession removes a session row. Deleting an absent row is a no-op,
// which makes revocation idempotent.
func (s *Store) DeleteSession(id string) error {
	return s.db.Where("id = ?", id).Delete(&models.Session{}).Error
}

// DeleteSessionsByUserID removes every session of a principal.
func (s *Store) DeleteSessionsByUserID(userID string) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.Session{}).Error
}

// GetSessionsByUserID returns all sessions of a principal, newest first.
func (s *Store) GetSessionsByUserID(userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// DeleteExpiredSessions reclaims rows whose expiry has passed. Lazy expiry
// at resolve time remains the correctness mechanism; this only frees space.
func (s *Store) DeleteExpiredSessions() (int64, error) {
	res := s.db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// CountActiveSessions counts sessions that have not yet expired.
func (s *Store) CountActiveSessions() (int64, error) {
	var count int64
	err := s.db.Model(&models.Session{}).
		Where("expires_at > ?", time.Now()).
		Count(&count).Error
	return count, err
}

// Bearer token operations

func (s *Store) CreateToken(token *models.BearerToken) error {
	return s.db.Create(token).Error
}

// GetTokenByHash retrieves a token row by the digest of the raw token.
func (s *Store) GetTokenByHash(hash string) (*models.BearerToken, error) {
	var t models.BearerToken
	if err := s.db.Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTokenByID(tokenID string) (*models.BearerToken, error) {
	var t models.BearerToken
	if err := s.db.Where("id = ?", tokenID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTokensByUserIDPaginated returns one page of a principal's tokens,
// optionally filtered by label substring.
func (s *Store) GetTokensByUserIDPaginated(
	userID string,
	params PaginationParams,
) ([]models.BearerToken, PaginationResult, error) {
	query := s.db.Model(&models.BearerToken{}).Where("user_id = ?", userID)
	if params.Search != "" {
		query = query.Where("label LIKE ?", "%"+params.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	pagination := CalculatePagination(total, params.Page, params.PageSize)

	var tokens []models.BearerToken
	err := query.Order("created_at DESC").
		Limit(pagination.PageSize).
		Offset((pagination.CurrentPage - 1) * pagination.PageSize).
		Find(&tokens).Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return tokens, pagination, nil
}

// UpdateTokenStatus updates the status of a token
func (s *Store) UpdateTokenStatus(tokenID, status string) error {
	return s.db.Model(&models.BearerToken{}).
		Where("id = ?", tokenID).
		Update("status", status).Error
}

// RevokeTokensByUserID marks every token of a principal revoked.
func (s *Store) RevokeTokensByUserID(userID string) error {
	return s.db.Model(&models.BearerToken{}).
		Where("user_id = ? AND status = ?", userID, models.TokenStatusActive).
		Update("status", models.TokenStatusRevoked).Error
}

// TouchTokenUsed records when a token last authenticated a request.
func (s *Store) TouchTokenUsed(tokenID string, usedAt time.Time) error {
	return s.db.Model(&models.BearerToken{}).
		Where("id = ?", tokenID).
		Update("last_used_at", &usedAt).Error
}

// DeleteExpiredTokens reclaims rows whose expiry has passed.
func (s *Store) DeleteExpiredTokens() (int64, error) {
	res := s.db.Where("expires_at != ? AND expires_at < ?", time.Time{}, time.Now()).
		Delete(&models.BearerToken{})
	return res.RowsAffected, res.Error
}

// CountActiveTokens counts active tokens that have not expired.
func (s *Store) CountActiveTokens() (int64, error) {
	var count int64
	err := s.db.Model(&models.BearerToken{}).
		Where("status = ?", models.TokenStatusActive).
		Where("expires_at = ? OR expires_at > ?", time.Time{}, time.Now()).
		Count(&count).Error
	return count, err
}

// Audit log operations

// CreateAuditLogBatch writes a batch of audit entries in one insert.
func (s *Store) CreateAuditLogBatch(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.Create(logs).Error
}

// DeleteAuditLogsBefore removes audit entries older than cutoff.
func (s *Store) DeleteAuditLogsBefore(cutoff time.Time) (int64, error) {
	res := s.db.Where("event_time < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}
