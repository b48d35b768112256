package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential is a row of the credentials table.
type Credential struct {
	Name      string    `gorm:"column:name;primaryKey;size:64"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Credential) TableName() string { return "credentials" }

// SQL persists credentials through GORM (sqlite or postgres).
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQL(db *gorm.DB) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db required")
	}
	return &SQL{db: db, now: time.Now}, nil
}

func (s *SQL) Get(ctx context.Context, name string) (string, error) {
	var row Credential
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading credential %s: %w", name, err)
	}
	return row.Value, nil
}

func (s *SQL) Set(ctx context.Context, name, value string) error {
	if err := validName(name); err != nil {
		return err
	}
	row := Credential{Name: name, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving credential %s: %w", name, err)
	}
	return nil
}

func (s *SQL) Remove(ctx context.Context, name string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", name).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("removing credential %s: %w", name, err)
	}
	return nil
}
