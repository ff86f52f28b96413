// Package extract pulls plain text out of uploaded report files.
package extract

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// ErrUnsupportedType marks file extensions no extractor handles.
var ErrUnsupportedType = errors.New("unsupported file type")

var (
	codeFenceRe = regexp.MustCompile("(?s)```.*?```")
	inlineRe    = regexp.MustCompile("`([^`]*)`")
	imageRe     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	headingRe   = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	emphasisRe  = regexp.MustCompile(`(\*{1,3}|_{1,3})([^*_]+?)(\*{1,3}|_{1,3})`)
)

// Text extracts the readable content of an uploaded file, keyed on its
// extension.
func Text(filename string, data []byte) (string, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".txt":
		return string(data), nil
	case ".md", ".markdown":
		return stripMarkdown(string(data)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, path.Ext(filename))
	}
}

func stripMarkdown(in string) string {
	out := codeFenceRe.ReplaceAllString(in, "")
	out = imageRe.ReplaceAllString(out, "")
	out = linkRe.ReplaceAllString(out, "$1")
	out = inlineRe.ReplaceAllString(out, "$1")
	out = headingRe.ReplaceAllString(out, "")
	out = emphasisRe.ReplaceAllString(out, "$2")
	return strings.TrimSpace(out)
}
