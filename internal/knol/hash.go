package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/memodeck/memodeck/internal/domain"
)

// Normalize concatenates the note's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(note domain.Note) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(note.Question)
	a := normalizePart(note.Answer)
	c := normalizePart(note.Context)

	// We join with a newline to ensure separation between fields,
	// preventing accidental joining of words. e.g. "question" and "answer"
	// becoming "questionanswer".
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash takes a note, normalizes it, and returns its SHA-256 hash as a hex
// string. The hash identifies the note across re-ingestions: editing any
// content field produces a new identity, while whitespace or case changes
// do not.
func Hash(note domain.Note) string {
	normalized := Normalize(note)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
