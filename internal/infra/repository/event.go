package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/infra/database/models"
)

// EventRepository is the persisted, append-only audit log.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Emit(ctx context.Context, event adz.Event) error {
	cdate := event.EmittedAt
	if cdate.IsZero() {
		cdate = time.Now().UTC()
	}
	m := models.Event{
		Kind:      string(event.Kind),
		Account:   string(event.Account),
		AdID:      event.AdID,
		CommentID: event.CommentID,
		CDate:     cdate,
	}
	err := r.db.WithContext(ctx).Create(&m).Error
	return errors.Wrap(err, "append event")
}

// Since returns up to limit events with a sequence number greater than seq.
func (r *EventRepository) Since(ctx context.Context, seq uint64, limit int) ([]adz.Event, error) {
	var rows []models.Event
	err := r.db.WithContext(ctx).
		Where("seq > ?", seq).
		Order("seq").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load events")
	}

	events := make([]adz.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, adz.Event{
			Seq:       row.Seq,
			Kind:      adz.EventKind(row.Kind),
			Account:   adz.AccountID(row.Account),
			AdID:      row.AdID,
			CommentID: row.CommentID,
			EmittedAt: row.CDate,
		})
	}
	return events, nil
}
