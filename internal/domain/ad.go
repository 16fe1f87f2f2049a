package domain

import "github.com/totegamma/concrnt-adz"

// HasAuthor is implemented by every record whose mutations are gated on its author.
type HasAuthor interface {
	AuthorID() adz.AccountID
}

// Ad is a classified listing.
type Ad struct {
	ID                uint32         `json:"id"`
	Author            adz.AccountID  `json:"author"`
	SelectedApplicant *adz.AccountID `json:"selectedApplicant,omitempty"`
	Title             string         `json:"title"`
	Body              string         `json:"body"`
	Tags              []string       `json:"tags"`
	Created           uint64         `json:"created"`
	NumOfComments     uint32         `json:"numOfComments"`
}

func (a Ad) AuthorID() adz.AccountID { return a.Author }

// Comment is keyed by (AdID, CommentID).
type Comment struct {
	AdID      uint32        `json:"adID"`
	CommentID uint32        `json:"commentID"`
	Author    adz.AccountID `json:"author"`
	Body      string        `json:"body"`
	Created   uint64        `json:"created"`
}

func (c Comment) AuthorID() adz.AccountID { return c.Author }
