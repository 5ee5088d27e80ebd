package extraction

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/gabriel-vasile/mimetype"
)

// decodeImage validates and decodes a base64 image payload, optionally given as a data URL.
// The size ceiling is checked on the estimated decoded size before any decoding happens.
// A declared type, from the request or the data URL, must be allowed and must match the
// type sniffed from the bytes.
func decodeImage(data, declared string, maxBytes int64, allowed []string) (*outbound.InlineMedia, error) {
	declared = normalizeMIME(declared)

	payload := strings.TrimSpace(data)
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 || !strings.Contains(payload[:idx], ";base64") {
			return nil, fmt.Errorf("image data URL must be base64 encoded")
		}
		if urlType := normalizeMIME(strings.TrimPrefix(payload[:idx], "data:")); urlType != "" {
			if declared != "" && declared != urlType {
				return nil, fmt.Errorf("declared type %s does not match data URL type %s", declared, urlType)
			}
			declared = urlType
		}
		payload = payload[idx+1:]
	}
	if declared != "" && !contains(allowed, declared) {
		return nil, fmt.Errorf("image type %s is not supported", declared)
	}
	payload = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, payload)

	if estimated := estimateDecodedSize(payload); estimated > maxBytes {
		return nil, fmt.Errorf("image is %d bytes, the limit is %d", estimated, maxBytes)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("image is not valid base64")
		}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("image is empty")
	}

	detected := mimetype.Detect(raw)
	if declared != "" {
		if !detected.Is(declared) {
			return nil, fmt.Errorf("image is %s but was declared as %s", detected.String(), declared)
		}
		return &outbound.InlineMedia{MIMEType: declared, Data: raw}, nil
	}
	for _, m := range allowed {
		if detected.Is(m) {
			return &outbound.InlineMedia{MIMEType: m, Data: raw}, nil
		}
	}
	return nil, fmt.Errorf("image type %s is not supported", detected.String())
}

// normalizeMIME lowercases a media type and drops parameters such as ";base64"
func normalizeMIME(s string) string {
	if idx := strings.Index(s, ";"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "image/jpg" {
		return "image/jpeg"
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func estimateDecodedSize(b64 string) int64 {
	n := int64(len(b64))
	padding := int64(len(b64) - len(strings.TrimRight(b64, "=")))
	return n*3/4 - padding
}
