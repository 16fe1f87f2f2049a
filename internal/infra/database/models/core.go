package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ad keeps title, body and tags as binary; tags are a JSON list of base64 strings.
type Ad struct {
	ID                uint32                      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Author            string                      `json:"author" gorm:"type:text;index;not null"`
	SelectedApplicant *string                     `json:"selectedApplicant" gorm:"type:text"`
	Title             []byte                      `json:"title"`
	Body              []byte                      `json:"body"`
	Tags              datatypes.JSONSlice[[]byte] `json:"tags"`
	Created           uint64                      `json:"created" gorm:"not null"`
	NumOfComments     uint32                      `json:"numOfComments" gorm:"not null;default:0"`
}

// Comment rows survive their ad on purpose; there is no foreign key.
type Comment struct {
	AdID      uint32 `json:"adID" gorm:"primaryKey;autoIncrement:false"`
	CommentID uint32 `json:"commentID" gorm:"primaryKey;autoIncrement:false"`
	Author    string `json:"author" gorm:"type:text;index;not null"`
	Body      []byte `json:"body"`
	Created   uint64 `json:"created" gorm:"not null"`
}

// TagEntry is one member of a tag bucket. A bucket exists exactly while it has rows.
type TagEntry struct {
	TagKey string `json:"tagKey" gorm:"primaryKey;type:text"`
	AdID   uint32 `json:"adID" gorm:"primaryKey;autoIncrement:false;index"`
	Tag    []byte `json:"tag" gorm:"not null"`
}

// AdCounterName names the Counter row that hands out ad ids.
const AdCounterName = "ad"

type Counter struct {
	Name  string `json:"name" gorm:"primaryKey;type:text"`
	Value uint32 `json:"value" gorm:"not null"`
}

type Event struct {
	Seq       uint64    `json:"seq" gorm:"primaryKey;autoIncrement"`
	Kind      string    `json:"kind" gorm:"type:text;index;not null"`
	Account   string    `json:"account" gorm:"type:text;index;not null"`
	AdID      uint32    `json:"adID" gorm:"index"`
	CommentID *uint32   `json:"commentID"`
	CDate     time.Time `json:"cdate" gorm:"not null"`
}
