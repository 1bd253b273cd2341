// Package identity persists the authenticated user's identity, the only
// state that outlives a session. Everything else is rebuilt from the
// server on login.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vibesphere/infrastructure"
	"vibesphere/internal/transport"
)

// Identity is the single stored record. The fixed primary key makes
// Save an upsert of that one row.
type Identity struct {
	ID         uint `gorm:"primaryKey"`
	UserID     string
	Username   string
	ProfilePic string
	Token      string
	SavedAt    time.Time
}

const identityRowID = 1

type Store struct {
	db *gorm.DB
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "identity.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open identity store: %w", err)
	}
	if err := db.AutoMigrate(&Identity{}); err != nil {
		return nil, fmt.Errorf("failed to migrate identity store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(user transport.User, token string) error {
	ident := Identity{
		ID:         identityRowID,
		UserID:     user.ID,
		Username:   user.Username,
		ProfilePic: user.ProfilePic,
		Token:      token,
		SavedAt:    time.Now().UTC(),
	}
	if err := s.db.Save(&ident).Error; err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// Load returns the stored identity, or ErrNoIdentity when the user has
// never logged in (or logged out).
func (s *Store) Load() (transport.User, string, error) {
	var ident Identity
	err := s.db.First(&ident, identityRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return transport.User{}, "", infrastructure.ErrNoIdentity
	}
	if err != nil {
		return transport.User{}, "", fmt.Errorf("failed to load identity: %w", err)
	}

	user := transport.User{
		ID:         ident.UserID,
		Username:   ident.Username,
		ProfilePic: ident.ProfilePic,
	}
	return user, ident.Token, nil
}

// Clear removes the stored identity. Safe to call when nothing is stored.
func (s *Store) Clear() error {
	if err := s.db.Delete(&Identity{}, identityRowID).Error; err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}
