package repository

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/internal/infra/database/models"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

// Store keeps the marketplace tables in a SQL database. Atomic maps onto one SQL transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Atomic(ctx context.Context, fn func(tx usecase.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

func (s *Store) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := (&gormTx{db: tx}).AdCounter()
		if err != nil {
			return err
		}
		snap.NextAdID = next

		var ads []models.Ad
		if err := tx.Order("id").Find(&ads).Error; err != nil {
			return err
		}
		snap.Ads = make([]domain.Ad, 0, len(ads))
		for _, m := range ads {
			snap.Ads = append(snap.Ads, adFromModel(m))
		}

		var comments []models.Comment
		if err := tx.Order("ad_id, comment_id").Find(&comments).Error; err != nil {
			return err
		}
		snap.Comments = make([]domain.Comment, 0, len(comments))
		for _, m := range comments {
			snap.Comments = append(snap.Comments, commentFromModel(m))
		}

		var entries []models.TagEntry
		if err := tx.Order("tag_key, ad_id").Find(&entries).Error; err != nil {
			return err
		}
		snap.Tags = make(map[string][]uint32)
		for _, e := range entries {
			tag := string(e.Tag)
			snap.Tags[tag] = append(snap.Tags[tag], e.AdID)
		}

		return nil
	})
	if err != nil {
		return domain.Snapshot{}, errors.Wrap(err, "snapshot failed")
	}

	snap.Canonicalize()
	return snap, nil
}

type gormTx struct {
	db *gorm.DB
}

// AdCounter locks the counter row until the transaction ends, so concurrent creates
// on Postgres queue up instead of reading the same id. SQLite drops the locking clause.
func (t *gormTx) AdCounter() (uint32, error) {
	var counter models.Counter
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Take(&counter, "name = ?", models.AdCounterName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "load ad counter")
	}
	return counter.Value, nil
}

func (t *gormTx) SetAdCounter(next uint32) error {
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.Counter{Name: models.AdCounterName, Value: next}).Error
	return errors.Wrap(err, "store ad counter")
}

func (t *gormTx) GetAd(id uint32) (domain.Ad, error) {
	var m models.Ad
	err := t.db.Take(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Ad{}, domain.NotFoundError{Resource: "ad"}
	}
	if err != nil {
		return domain.Ad{}, errors.Wrap(err, "load ad")
	}
	return adFromModel(m), nil
}

func (t *gormTx) PutAd(ad domain.Ad) error {
	m := adToModel(ad)
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	return errors.Wrap(err, "store ad")
}

func (t *gormTx) InsertAd(ad domain.Ad) error {
	m := adToModel(ad)
	err := t.db.Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrapf(err, "ad %d already exists", ad.ID)
	}
	return errors.Wrap(err, "insert ad")
}

func (t *gormTx) DeleteAd(id uint32) error {
	result := t.db.Delete(&models.Ad{}, "id = ?", id)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete ad")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "ad"}
	}
	return nil
}

func (t *gormTx) GetComment(adID, commentID uint32) (domain.Comment, error) {
	var m models.Comment
	err := t.db.Take(&m, "ad_id = ? AND comment_id = ?", adID, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	if err != nil {
		return domain.Comment{}, errors.Wrap(err, "load comment")
	}
	return commentFromModel(m), nil
}

func (t *gormTx) PutComment(comment domain.Comment) error {
	m := commentToModel(comment)
	err := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ad_id"}, {Name: "comment_id"}},
		UpdateAll: true,
	}).Create(&m).Error
	return errors.Wrap(err, "store comment")
}

func (t *gormTx) DeleteComment(adID, commentID uint32) error {
	result := t.db.Delete(&models.Comment{}, "ad_id = ? AND comment_id = ?", adID, commentID)
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete comment")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "comment"}
	}
	return nil
}

func (t *gormTx) TagBucket(tag string) ([]uint32, error) {
	ids := []uint32{}
	err := t.db.Model(&models.TagEntry{}).
		Where("tag_key = ?", TagKey(tag)).
		Order("ad_id").
		Pluck("ad_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "load tag bucket")
	}
	return ids, nil
}

func (t *gormTx) AddToTag(tag string, adID uint32) error {
	err := t.db.Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.TagEntry{
		TagKey: TagKey(tag),
		AdID:   adID,
		Tag:    []byte(tag),
	}).Error
	return errors.Wrap(err, "index tag")
}

func (t *gormTx) RemoveFromTag(tag string, adID uint32) error {
	err := t.db.Delete(&models.TagEntry{}, "tag_key = ? AND ad_id = ?", TagKey(tag), adID).Error
	return errors.Wrap(err, "unindex tag")
}

// TagKey is the fixed width index key of an arbitrary tag.
func TagKey(tag string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(tag))
	return hex.EncodeToString(h.Sum(nil))
}

func adToModel(ad domain.Ad) models.Ad {
	var selected *string
	if ad.SelectedApplicant != nil {
		s := string(*ad.SelectedApplicant)
		selected = &s
	}
	tags := make(datatypes.JSONSlice[[]byte], 0, len(ad.Tags))
	for _, t := range ad.Tags {
		tags = append(tags, []byte(t))
	}
	return models.Ad{
		ID:                ad.ID,
		Author:            string(ad.Author),
		SelectedApplicant: selected,
		Title:             []byte(ad.Title),
		Body:              []byte(ad.Body),
		Tags:              tags,
		Created:           ad.Created,
		NumOfComments:     ad.NumOfComments,
	}
}

func adFromModel(m models.Ad) domain.Ad {
	var selected *adz.AccountID
	if m.SelectedApplicant != nil {
		s := adz.AccountID(*m.SelectedApplicant)
		selected = &s
	}
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		tags = append(tags, string(t))
	}
	return domain.Ad{
		ID:                m.ID,
		Author:            adz.AccountID(m.Author),
		SelectedApplicant: selected,
		Title:             string(m.Title),
		Body:              string(m.Body),
		Tags:              tags,
		Created:           m.Created,
		NumOfComments:     m.NumOfComments,
	}
}

func commentToModel(c domain.Comment) models.Comment {
	return models.Comment{
		AdID:      c.AdID,
		CommentID: c.CommentID,
		Author:    string(c.Author),
		Body:      []byte(c.Body),
		Created:   c.Created,
	}
}

func commentFromModel(m models.Comment) domain.Comment {
	return domain.Comment{
		AdID:      m.AdID,
		CommentID: m.CommentID,
		Author:    adz.AccountID(m.Author),
		Body:      string(m.Body),
		Created:   m.Created,
	}
}
