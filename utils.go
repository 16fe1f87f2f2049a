package adz

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const uriScheme = "adz"

// ComposeAdURI builds adz://<ad>[/<comment>].
func ComposeAdURI(adID uint32, commentID *uint32) string {
	u := &url.URL{
		Scheme: uriScheme,
		Host:   strconv.FormatUint(uint64(adID), 10),
	}
	if commentID != nil {
		u.Path = "/" + strconv.FormatUint(uint64(*commentID), 10)
	}
	return u.String()
}

func ParseAdURI(raw string) (uint32, *uint32, error) {
	uri, err := url.Parse(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid uri")
	}
	if uri.Scheme != uriScheme {
		return 0, nil, fmt.Errorf("unsupported uri scheme")
	}

	adID, err := strconv.ParseUint(uri.Host, 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid ad id %q", uri.Host)
	}

	key := strings.TrimPrefix(uri.Path, "/")
	if key == "" {
		return uint32(adID), nil, nil
	}

	commentID, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid comment id %q", key)
	}
	cid := uint32(commentID)
	return uint32(adID), &cid, nil
}

func hasChar(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}

// IsAccountID checks the shape of a bech32 "con" account id.
func IsAccountID(id AccountID) bool {
	s := string(id)
	return len(s) == 42 && s[:3] == AccountPrefix && !hasChar(s, '.')
}
