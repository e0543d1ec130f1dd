// Package parser extracts notes from plain markdown files. A note is a
// block of prefixed lines:
//
//	Q: front of the card
//	A: back of the card
//	C: optional context shown with the answer
//	T: optional space-separated tags
//
// Fields may span multiple lines; a new "Q:" line or a "---" rule starts
// the next note.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/memodeck/memodeck/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
	tagsPrefix     = "T:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
	readingTags
)

// ParseFile reads a file from the given path and extracts all notes.
func ParseFile(path string) ([]domain.Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all notes. Notes without a
// question are dropped silently; everything outside a note is ignored.
func Parse(r io.Reader) ([]domain.Note, error) {
	scanner := bufio.NewScanner(r)
	var notes []domain.Note
	var current domain.Note
	var block []string
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch st {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		case readingTags:
			current.Tags = strings.Join(strings.Fields(content), " ")
		}
		block = nil
	}

	finishNote := func() {
		flushBlock()
		if current.Question != "" {
			notes = append(notes, current)
		}
		current = domain.Note{}
		st = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == separator {
			finishNote()
			continue
		}

		next, rest := fieldStart(line)
		switch {
		case next == readingQuestion:
			// A new question always starts a new note.
			if st != seeking {
				finishNote()
			} else {
				flushBlock()
			}
			st = readingQuestion
			block = append(block, rest)
		case next != seeking:
			flushBlock()
			st = next
			block = append(block, rest)
		case st != seeking:
			block = append(block, line)
		}
	}
	finishNote()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

// fieldStart reports which field the line opens, if any, and the content
// after the prefix with one optional leading space removed.
func fieldStart(line string) (state, string) {
	prefixes := []struct {
		prefix string
		st     state
	}{
		{questionPrefix, readingQuestion},
		{answerPrefix, readingAnswer},
		{contextPrefix, readingContext},
		{tagsPrefix, readingTags},
	}
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			rest := strings.TrimPrefix(line, p.prefix)
			rest = strings.TrimPrefix(rest, " ")
			return p.st, rest
		}
	}
	return seeking, ""
}
