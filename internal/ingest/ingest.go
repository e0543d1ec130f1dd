// Package ingest reconciles markdown note sources with the database: new
// notes get a card appended to the tail of the new queue, notes whose content
// disappeared from every source file are deleted, and tag-only edits are
// applied in place.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/memodeck/memodeck/internal/domain"
	"github.com/memodeck/memodeck/internal/gitsource"
	"github.com/memodeck/memodeck/internal/knol"
	"github.com/memodeck/memodeck/internal/parser"
	"github.com/memodeck/memodeck/internal/scheduler"
	"github.com/memodeck/memodeck/internal/storage"
)

// Stats summarises one source reconciliation.
type Stats struct {
	Parsed  int
	Added   int
	Updated int
	Deleted int
	Errors  []error
}

// Run reconciles every registered source. Git sources are mirrored under
// reposDir first. Per-source failures are logged and do not stop the run.
func Run(db *storage.DB, reposDir string) error {
	slog.Info("starting sync for all sources")
	sources, err := db.AllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}
	if len(sources) == 0 {
		slog.Info("no sources configured, add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for i := range sources {
		source := &sources[i]
		slog.Info("syncing source", "id", source.ID, "path", source.Path)

		root := source.Path
		if gitsource.IsRemote(source.Path) {
			localPath, err := gitsource.LocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git repo", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(source.Path, localPath); err != nil {
				slog.Error("error syncing git repo", "url", source.Path, "error", err)
				continue
			}
			root = localPath
		}

		stats, err := Reconcile(db, source, root)
		if err != nil {
			slog.Error("error reconciling source", "path", root, "error", err)
			continue
		}
		slog.Info("reconciliation complete",
			"path", root,
			"parsed", stats.Parsed,
			"added", stats.Added,
			"updated", stats.Updated,
			"deleted", stats.Deleted,
			"errors", len(stats.Errors),
		)
	}
	slog.Info("sync complete")
	return nil
}

// Reconcile walks root for markdown files and brings the database in line
// with their contents. Note identity is the content hash, so an edited
// question or answer reads as delete-plus-add and restarts the schedule,
// while tag edits update the existing note in place.
func Reconcile(db *storage.DB, source *storage.Source, root string) (Stats, error) {
	var stats Stats
	seen := make(map[string]bool)
	nextID := time.Now().UnixMilli()

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		notes, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}

		deckID, deckErr := deckForFile(db, root, path)
		if deckErr != nil {
			stats.Errors = append(stats.Errors, deckErr)
			return nil
		}

		for _, note := range notes {
			note.Hash = knol.Hash(note)
			stats.Parsed++
			if seen[note.Hash] {
				continue
			}
			seen[note.Hash] = true

			existing, findErr := db.NoteByHash(note.Hash)
			if findErr != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("db check for %s: %w", note.Hash, findErr))
				continue
			}
			if existing != nil {
				if existing.Tags != note.Tags || existing.SourceID != source.ID {
					existing.Tags = note.Tags
					existing.SourceID = source.ID
					existing.Modified = time.Now().Unix()
					if updErr := db.UpdateNote(existing); updErr != nil {
						stats.Errors = append(stats.Errors, updErr)
						continue
					}
					stats.Updated++
				}
				continue
			}

			target := deckID
			if name := deckTag(&note); name != "" {
				id, tagErr := ensureDeck(db, name)
				if tagErr != nil {
					stats.Errors = append(stats.Errors, tagErr)
					continue
				}
				target = id
			}

			note.ID = nextID
			note.SourceID = source.ID
			note.Modified = time.Now().Unix()
			nextID++
			if insErr := insertNoteWithCard(db, &note, target, &nextID); insErr != nil {
				stats.Errors = append(stats.Errors, insErr)
				continue
			}
			stats.Added++
			slog.Info("new note ingested", "hash", note.Hash, "deck", target)
		}
		return nil
	})
	if walkErr != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	dbNotes, err := db.NotesOfSource(source.ID)
	if err != nil {
		return stats, fmt.Errorf("failed to get notes of source %d: %w", source.ID, err)
	}
	for _, n := range dbNotes {
		if seen[n.Hash] {
			continue
		}
		slog.Info("orphaned note, deleting", "hash", n.Hash)
		if delErr := db.DeleteNote(n.ID); delErr != nil {
			stats.Errors = append(stats.Errors, delErr)
			continue
		}
		stats.Deleted++
	}

	if err := db.TouchSource(source.ID); err != nil {
		slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
	}
	return stats, nil
}

func insertNoteWithCard(db *storage.DB, note *domain.Note, deckID int64, nextID *int64) error {
	if err := db.InsertNote(note); err != nil {
		return err
	}
	pos, err := db.MaxNewPosition()
	if err != nil {
		return err
	}
	card := &domain.Card{
		ID:       *nextID,
		NoteID:   note.ID,
		DeckID:   deckID,
		Type:     domain.TypeNew,
		Queue:    domain.QueueNew,
		Due:      domain.Position(pos + 1),
		Modified: note.Modified,
	}
	*nextID++
	if err := db.InsertCard(card); err != nil {
		return fmt.Errorf("failed to insert card for note %s: %w", note.Hash, err)
	}
	return nil
}

// deckTag returns the deck name from a "deck:Name" tag, if the note carries
// one. The tag overrides directory routing; "deck:Japanese::Verbs" is valid.
func deckTag(note *domain.Note) string {
	for _, t := range strings.Fields(note.Tags) {
		if name, ok := strings.CutPrefix(t, "deck:"); ok && name != "" {
			return name
		}
	}
	return ""
}

// deckForFile routes a markdown file to a deck based on its directory
// relative to the source root. Files at the root go to the Default deck;
// "japanese/verbs/xyz.md" goes to deck "japanese::verbs". Missing decks and
// their ancestors are created with the default configuration.
func deckForFile(db *storage.DB, root, path string) (int64, error) {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return 1, nil
	}
	name := strings.ReplaceAll(filepath.ToSlash(rel), "/", domain.DeckSeparator)
	return ensureDeck(db, name)
}

func ensureDeck(db *storage.DB, name string) (int64, error) {
	for _, ancestor := range domain.AncestorNames(name) {
		if _, err := ensureDeckLeaf(db, ancestor); err != nil {
			return 0, err
		}
	}
	return ensureDeckLeaf(db, name)
}

func ensureDeckLeaf(db *storage.DB, name string) (int64, error) {
	deck, err := db.DeckByName(name)
	if err == nil {
		return deck.ID, nil
	}
	if !errors.Is(err, scheduler.ErrDeckNotFound) {
		return 0, err
	}
	deck = &domain.Deck{Name: name, ConfigID: 1}
	if insErr := db.InsertDeck(deck); insErr != nil {
		return 0, fmt.Errorf("failed to create deck %q: %w", name, insErr)
	}
	slog.Info("created deck", "name", name)
	return deck.ID, nil
}
