package domain

import "strings"

// Note is a single question-answer-context entry as parsed from a markdown
// source. Its identity is the content hash; the scheduler references notes
// only through card.NoteID and the leech tag.
type Note struct {
	ID       int64
	Hash     string
	Question string
	Answer   string
	Context  string
	Tags     string // space-separated
	SourceID int64
	Modified int64
	USN      int
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	for _, t := range strings.Fields(n.Tags) {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends the tag if not already present.
func (n *Note) AddTag(tag string) {
	if tag == "" || n.HasTag(tag) {
		return
	}
	if n.Tags == "" {
		n.Tags = tag
		return
	}
	n.Tags += " " + tag
}
