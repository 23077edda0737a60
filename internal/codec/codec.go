// Package codec converts wishlist data between its human-readable form and
// the single encoded cell the sheet stores per user.
package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ListDelimiter separates wishlist items inside one decoded cell. Chosen as
// a sequence unlikely to appear in free-text wishes; a collision is an
// accepted risk, not detected.
const ListDelimiter = "|;|"

func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

func Decode(token string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return string(data), nil
}

// JoinList encodes the whole list atomically: join first, encode once.
// An empty list maps to the empty token, matching an absent cell.
func JoinList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return Encode(strings.Join(items, ListDelimiter))
}

// SplitList is the inverse of JoinList. The empty token yields an empty list.
func SplitList(token string) ([]string, error) {
	if token == "" {
		return []string{}, nil
	}
	text, err := Decode(token)
	if err != nil {
		return nil, err
	}
	return strings.Split(text, ListDelimiter), nil
}
