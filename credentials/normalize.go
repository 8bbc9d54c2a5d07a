package credentials

import (
	"fmt"
	"regexp"
	"strings"
)

// pemLineLength is the base64 body width used by encoding/pem and openssl
const pemLineLength = 64

var (
	pemBlockRe    = regexp.MustCompile(`(?s)-----BEGIN ([A-Z0-9 ]+)-----(.*?)-----END ([A-Z0-9 ]+)-----`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	wrappingQuote = []string{`"`, `'`, "`"}
)

// NormalizePEM repairs PEM text that went through a deployment pipeline
// storing multi-line secrets as single values. It removes triple quote
// artifacts and wrapping quotes, expands literal \n escapes, drops
// non-printable and non-ASCII bytes, then rewraps every block body at 64
// columns between its BEGIN and END markers.
//
// When the text carries no PEM markers at all and blockType is set, the
// whole text is treated as the base64 body of a single block of that type.
func NormalizePEM(text, blockType string) ([]byte, error) {
	s := stripQuoting(text)
	s = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\r`, "").Replace(s)
	s = printableASCII(s)

	matches := pemBlockRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		if blockType == "" {
			return nil, fmt.Errorf("credentials: no PEM block found in input")
		}
		body := whitespaceRe.ReplaceAllString(s, "")
		if body == "" {
			return nil, fmt.Errorf("credentials: empty %s input", blockType)
		}
		return []byte(wrapBlock(blockType, nil, body)), nil
	}

	var out strings.Builder
	for _, m := range matches {
		begin, end := strings.TrimSpace(m[1]), strings.TrimSpace(m[3])
		if begin != end {
			return nil, fmt.Errorf("credentials: PEM markers do not match: BEGIN %s / END %s", begin, end)
		}
		headers, body := splitHeaders(m[2])
		out.WriteString(wrapBlock(begin, headers, body))
	}
	return []byte(out.String()), nil
}

// stripQuoting removes the triple quotes and wrapping quotes that shell
// and YAML escaping tend to leave around secret values
func stripQuoting(s string) string {
	s = strings.ReplaceAll(s, `"""`, "")
	s = strings.ReplaceAll(s, `'''`, "")
	s = strings.TrimSpace(s)
	for {
		trimmed := false
		for _, q := range wrappingQuote {
			if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
				s = strings.TrimSpace(s[1 : len(s)-1])
				trimmed = true
			}
		}
		if !trimmed {
			return s
		}
	}
}

// printableASCII keeps printable ASCII and newlines
func printableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || (c >= 0x20 && c < 0x7f) {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// splitHeaders separates RFC 1421 style "Key: value" lines from the
// base64 body of a block
func splitHeaders(raw string) (headers []string, body string) {
	var bodyParts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, ":") {
			headers = append(headers, line)
			continue
		}
		bodyParts = append(bodyParts, line)
	}
	return headers, whitespaceRe.ReplaceAllString(strings.Join(bodyParts, ""), "")
}

func wrapBlock(blockType string, headers []string, body string) string {
	var b strings.Builder
	b.WriteString("-----BEGIN " + blockType + "-----\n")
	if len(headers) > 0 {
		for _, h := range headers {
			b.WriteString(h + "\n")
		}
		b.WriteString("\n")
	}
	for len(body) > pemLineLength {
		b.WriteString(body[:pemLineLength] + "\n")
		body = body[pemLineLength:]
	}
	if body != "" {
		b.WriteString(body + "\n")
	}
	b.WriteString("-----END " + blockType + "-----\n")
	return b.String()
}
