package domain

const (
	RequesterIdCtxKey = "adz-requesterId"
)

const (
	// RequesterIdHeader carries the caller identity the host ledger already verified.
	RequesterIdHeader = "adz-requester-account"
)

const (
	CacheKeyAdPrefix      = "ad:"
	CacheKeyCommentPrefix = "comment:"
)

const (
	SignalChannelPrefix = "adz/"
)
