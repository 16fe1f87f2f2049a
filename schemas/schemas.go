package schemas

import "github.com/totegamma/concrnt-adz"

const (
	CreateAdCall        string = "create_ad"
	UpdateAdCall        string = "update_ad"
	DeleteAdCall        string = "delete_ad"
	SelectApplicantCall string = "select_applicant"
	CreateCommentCall   string = "create_comment"
	UpdateCommentCall   string = "update_comment"
	DeleteCommentCall   string = "delete_comment"
)

type CreateAd struct {
	Title string     `json:"title"`
	Body  string     `json:"body"`
	Tags  []string   `json:"tags"`
	Fee   adz.Amount `json:"fee"`
}

type UpdateAd struct {
	AdID  uint32   `json:"adID"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type DeleteAd struct {
	AdID uint32 `json:"adID"`
}

type SelectApplicant struct {
	AdID      uint32        `json:"adID"`
	Applicant adz.AccountID `json:"applicant"`
	Fee       adz.Amount    `json:"fee"`
}

type CreateComment struct {
	AdID uint32 `json:"adID"`
	Body string `json:"body"`
}

type UpdateComment struct {
	AdID      uint32 `json:"adID"`
	CommentID uint32 `json:"commentID"`
	Body      string `json:"body"`
}

type DeleteComment struct {
	AdID      uint32 `json:"adID"`
	CommentID uint32 `json:"commentID"`
}
