// Package archive records the outcome of finished loot sessions in
// Postgres. It only ever sees final summaries; live sessions stay in memory.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/loot-draft-backend/internal/engine"
)

// Outcome is one finished session.
type Outcome struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"index;size:128;not null" json:"session_id"`
	Manager      string    `gorm:"size:128;not null" json:"manager"`
	Status       string    `gorm:"size:32;not null" json:"status"`
	Participants int       `json:"participants"`
	Picks        int       `json:"picks"`
	Unclaimed    int       `json:"unclaimed"`
	Snapshot     string    `gorm:"type:jsonb" json:"-"`
	FinishedAt   time.Time `gorm:"index" json:"finished_at"`
	Awards       []Award   `json:"awards"`
}

// Award is one assignment history entry of a finished session.
type Award struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	OutcomeID     uint   `gorm:"index;not null" json:"-"`
	ParticipantID string `gorm:"size:128;not null" json:"participant_id"`
	ItemID        int    `json:"item_id"`
	ItemName      string `json:"item_name"`
	Quantity      int    `json:"quantity"`
	Pick          int    `json:"pick"`
}

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the archive tables.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.AutoMigrate(&Outcome{}, &Award{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Store{db: db}, nil
}

// Save writes a final snapshot and its awards in one transaction.
func (s *Store) Save(ctx context.Context, snap engine.Snapshot, finishedAt time.Time) error {
	outcome, err := toOutcome(snap, finishedAt)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&outcome).Error
	})
}

// Recent returns the latest outcomes, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Outcome, error) {
	var out []Outcome
	err := s.db.WithContext(ctx).
		Preload("Awards").
		Order("finished_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toOutcome(snap engine.Snapshot, finishedAt time.Time) (Outcome, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode snapshot: %w", err)
	}
	o := Outcome{
		SessionID:    snap.SessionID,
		Manager:      snap.Manager,
		Status:       string(snap.Status),
		Participants: len(snap.Roster),
		Picks:        snap.PickIndex,
		Unclaimed:    len(snap.Unclaimed()),
		Snapshot:     string(raw),
		FinishedAt:   finishedAt,
	}
	for _, item := range snap.Items {
		for _, a := range item.Assignments {
			o.Awards = append(o.Awards, Award{
				ParticipantID: a.ParticipantID,
				ItemID:        item.ID,
				ItemName:      item.Name,
				Quantity:      a.Quantity,
				Pick:          a.Pick,
			})
		}
	}
	return o, nil
}
