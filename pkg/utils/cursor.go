package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodeCursor packs the order-by values of the last item on a page into
// an opaque token.
func EncodeCursor(values ...string) string {
	if len(values) == 0 {
		return ""
	}
	raw, _ := json.Marshal(values)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to nil.
func DecodeCursor(token string) ([]string, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	return values, nil
}
