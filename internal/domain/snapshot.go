package domain

import (
	"encoding/binary"
	"encoding/hex"
	"slices"
	"sort"

	"github.com/zeebo/xxh3"
)

// Snapshot is the full owned state in canonical order.
type Snapshot struct {
	NextAdID uint32              `json:"nextAdID"`
	Ads      []Ad                `json:"ads"`
	Comments []Comment           `json:"comments"`
	Tags     map[string][]uint32 `json:"tags"`
}

// Canonicalize sorts every collection so equal states compare equal.
func (s *Snapshot) Canonicalize() {
	sort.Slice(s.Ads, func(i, j int) bool { return s.Ads[i].ID < s.Ads[j].ID })
	sort.Slice(s.Comments, func(i, j int) bool {
		if s.Comments[i].AdID != s.Comments[j].AdID {
			return s.Comments[i].AdID < s.Comments[j].AdID
		}
		return s.Comments[i].CommentID < s.Comments[j].CommentID
	})
	for _, ids := range s.Tags {
		slices.Sort(ids)
	}
}

// Digest is a hex xxh3-128 over the canonical encoding.
func (s Snapshot) Digest() string {
	s.Canonicalize()

	h := xxh3.New()
	var buf [8]byte

	putU64 := func(v uint64) {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putBytes := func(b string) {
		putU64(uint64(len(b)))
		h.WriteString(b)
	}

	putU64(uint64(s.NextAdID))

	putU64(uint64(len(s.Ads)))
	for _, ad := range s.Ads {
		putU64(uint64(ad.ID))
		putBytes(string(ad.Author))
		if ad.SelectedApplicant != nil {
			putU64(1)
			putBytes(string(*ad.SelectedApplicant))
		} else {
			putU64(0)
		}
		putBytes(ad.Title)
		putBytes(ad.Body)
		putU64(uint64(len(ad.Tags)))
		for _, t := range ad.Tags {
			putBytes(t)
		}
		putU64(ad.Created)
		putU64(uint64(ad.NumOfComments))
	}

	putU64(uint64(len(s.Comments)))
	for _, c := range s.Comments {
		putU64(uint64(c.AdID))
		putU64(uint64(c.CommentID))
		putBytes(string(c.Author))
		putBytes(c.Body)
		putU64(c.Created)
	}

	tags := make([]string, 0, len(s.Tags))
	for t := range s.Tags {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	putU64(uint64(len(tags)))
	for _, t := range tags {
		putBytes(t)
		ids := s.Tags[t]
		putU64(uint64(len(ids)))
		for _, id := range ids {
			putU64(uint64(id))
		}
	}

	sum := h.Sum128().Bytes()
	return hex.EncodeToString(sum[:])
}
