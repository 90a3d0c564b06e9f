package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"upravdom/internal/models"
)

var ErrSessionExpired = errors.New("session expired")

type SessionStore struct{ db *gorm.DB }

func NewSessionStore(db *gorm.DB) *SessionStore { return &SessionStore{db: db} }

func (s *SessionStore) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && sess.ExpiresAt.Before(time.Now().UTC()) {
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// DeleteForSubject — logout всех сессий принципала.
func (s *SessionStore) DeleteForSubject(ctx context.Context, subjectUUID string) error {
	return s.db.WithContext(ctx).
		Where("subject_uuid = ?", subjectUUID).
		Delete(&models.Session{}).Error
}
