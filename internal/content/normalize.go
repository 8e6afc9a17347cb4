// Package content turns fetched file payloads into bounded text records.
package content

import (
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"repobrief/internal/channel"
)

const (
	// MaxContentRunes bounds the text kept per file.
	MaxContentRunes = 10000

	// DownloadPlaceholder stands in for files the host only offers by download URL.
	DownloadPlaceholder = "(Content available via download URL)"

	encodingBase64 = "base64"
)

// ErrMissingPayload is returned when a payload carries neither content nor a download URL.
var ErrMissingPayload = errors.New("payload has no content")

// Normalized is the text form of one fetched file.
type Normalized struct {
	Content  string
	Size     int
	Language string
}

// Normalize decodes payload, truncates it to MaxContentRunes and labels it
// with the language derived from filePath.
func Normalize(payload channel.FileContents, filePath string) (Normalized, error) {
	var text string
	switch {
	case payload.Content != "":
		decoded, err := decode(payload.Content, payload.Encoding)
		if err != nil {
			return Normalized{}, fmt.Errorf("decode %s: %w", filePath, err)
		}
		text = decoded
	case payload.DownloadURL != "":
		text = DownloadPlaceholder
	default:
		return Normalized{}, fmt.Errorf("%s: %w", filePath, ErrMissingPayload)
	}

	// Size reports the whole file, not the kept prefix.
	size := utf8.RuneCountInString(text)
	if payload.Size != nil && *payload.Size > 0 {
		size = *payload.Size
	}
	text = Truncate(text, MaxContentRunes)

	return Normalized{
		Content:  text,
		Size:     size,
		Language: Language(filePath),
	}, nil
}

func decode(raw, encoding string) (string, error) {
	if encoding != "" && !strings.EqualFold(encoding, encodingBase64) {
		return strings.ToValidUTF8(raw, string(utf8.RuneError)), nil
	}
	// The contents API wraps base64 at 60 columns.
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, raw)
	b, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil
}

// Truncate returns s cut to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var languages = map[string]string{
	"js":   "javascript",
	"ts":   "typescript",
	"py":   "python",
	"java": "java",
	"cpp":  "cpp",
	"c":    "c",
	"rb":   "ruby",
	"go":   "go",
	"rs":   "rust",
	"php":  "php",
	"lisp": "lisp",
	"cl":   "lisp",
	"scm":  "scheme",
	"md":   "markdown",
	"json": "json",
	"yml":  "yaml",
	"yaml": "yaml",
}

var sourceLike = map[string]struct{}{
	".js": {}, ".ts": {}, ".py": {}, ".java": {}, ".cpp": {}, ".c": {}, ".h": {},
	".rb": {}, ".go": {}, ".rs": {}, ".php": {}, ".swift": {}, ".kt": {},
	".lisp": {}, ".cl": {}, ".scm": {}, ".rkt": {}, ".el": {},
	".md": {}, ".txt": {}, ".json": {}, ".yml": {}, ".yaml": {},
}

// Language maps the extension of filePath to a fence label. Unknown
// extensions pass through lowercased; names without one use the name itself.
func Language(filePath string) string {
	name := strings.ToLower(path.Base(filePath))
	if name == "." || name == "/" {
		name = ""
	}
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = name[i+1:]
	} else {
		ext = name
	}
	if lang, ok := languages[ext]; ok {
		return lang
	}
	if ext == "" {
		return "text"
	}
	return ext
}

// IsSourceLike reports whether name carries an extension worth analyzing.
func IsSourceLike(name string) bool {
	_, ok := sourceLike[strings.ToLower(path.Ext(name))]
	return ok
}
