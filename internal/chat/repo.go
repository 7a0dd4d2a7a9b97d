package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Transaction runs fn against a repo bound to a single transaction. Any error
// returned by fn, or a panic, rolls everything back.
func (r *Repo) Transaction(ctx context.Context, fn func(tx *Repo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

func (r *Repo) GetAssistant(ctx context.Context, id uint64) (*Assistant, error) {
	var a Assistant
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAssistant inserts a unless a row with its ID already exists. It
// reports whether a row was created.
func (r *Repo) EnsureAssistant(ctx context.Context, a *Assistant) (bool, error) {
	created := false
	err := r.Transaction(ctx, func(tx *Repo) error {
		_, err := tx.GetAssistant(ctx, a.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.db.WithContext(ctx).Create(a).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *Repo) InsertLog(ctx context.Context, l *ChatLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// ListRecentLogsDesc returns the most recent logs of a session, newest first.
func (r *Repo) ListRecentLogsDesc(ctx context.Context, sessionID string, limit int) ([]ChatLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []ChatLog
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListLogsBySession returns every log of a session, oldest first.
func (r *Repo) ListLogsBySession(ctx context.Context, sessionID string) ([]ChatLog, error) {
	var logs []ChatLog
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
