package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"upravdom/internal/models"
)

var ErrAlreadyVoted = errors.New("already voted")

type FeedStore struct{ db *gorm.DB }

func NewFeedStore(db *gorm.DB) *FeedStore { return &FeedStore{db: db} }

func (s *FeedStore) ListAnnouncements(ctx context.Context, buildingID uint, limit int) ([]models.Announcement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.Announcement
	err := s.db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("pinned desc, created_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *FeedStore) CreateAnnouncement(ctx context.Context, buildingID uint, authorUUID, title, body string) (*models.Announcement, error) {
	a := models.Announcement{
		UUID:       uuid.NewString(),
		BuildingID: buildingID,
		AuthorUUID: authorUUID,
		Title:      title,
		Body:       body,
	}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *FeedStore) CreatePoll(ctx context.Context, buildingID uint, question string, options []string, closesAt *time.Time) (*models.Poll, error) {
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	p := models.Poll{
		UUID:       uuid.NewString(),
		BuildingID: buildingID,
		Question:   question,
		Options:    datatypes.JSON(raw),
		Status:     models.PollStatusOpen,
		ClosesAt:   closesAt,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FeedStore) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	var p models.Poll
	err := s.db.WithContext(ctx).Where("uuid = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *FeedStore) ListPolls(ctx context.Context, buildingID uint) ([]models.Poll, error) {
	var rows []models.Poll
	err := s.db.WithContext(ctx).
		Where("building_id = ?", buildingID).
		Order("created_at desc").Limit(100).Find(&rows).Error
	return rows, err
}

// Vote — один голос на пару (poll, voter); повтор ловим по unique index.
func (s *FeedStore) Vote(ctx context.Context, pollID uint, voterUUID string, option int) error {
	v := models.PollVote{PollID: pollID, VoterUUID: voterUUID, Option: option}
	err := s.db.WithContext(ctx).Create(&v).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyVoted
	}
	return err
}

// PollResults — счётчик голосов по индексам вариантов.
func (s *FeedStore) PollResults(ctx context.Context, pollID uint) (map[int]int, error) {
	type row struct {
		Option int
		N      int
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.PollVote{}).
		Select("option, count(*) as n").
		Where("poll_id = ?", pollID).
		Group("option").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for _, r := range rows {
		out[r.Option] = r.N
	}
	return out, nil
}
