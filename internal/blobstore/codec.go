package blobstore

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeDataURL wraps raw bytes as a base64 data URL.
func EncodeDataURL(mime string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// DecodeDataURL splits a base64 data URL into its MIME type and raw bytes.
func DecodeDataURL(s string) (mime string, data []byte, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrDecode)
	}

	head, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrDecode)
	}

	mime, ok = strings.CutSuffix(head, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrDecode)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return mime, data, nil
}
