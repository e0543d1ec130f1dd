// Package gitsource mirrors remote note repositories into a local cache
// directory so the ingest layer can walk them like any other directory.
package gitsource

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones the repository if localPath does not exist yet, or pulls the
// latest changes if it does.
func Sync(repoURL, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning note repository", "url", repoURL, "path", localPath)
		_, err := git.PlainClone(localPath, false, &git.CloneOptions{
			URL:   repoURL,
			Depth: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		return nil

	case err == nil:
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}
		err = worktree.Pull(&git.PullOptions{RemoteName: "origin"})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			slog.Debug("note repository already up to date", "path", localPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		slog.Info("pulled note repository", "path", localPath)
		return nil

	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}
}

// IsRemote reports whether the source path names a git repository rather
// than a local directory.
func IsRemote(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// LocalPath maps a repository URL to a stable cache path under baseDir.
// Both https and scp-like git@host:user/repo.git forms are supported.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && (parsed.Scheme == "https" || parsed.Scheme == "http") {
		return filepath.Join(baseDir, parsed.Host, strings.TrimSuffix(parsed.Path, ".git")), nil
	}

	if at := strings.IndexByte(repoURL, '@'); at >= 0 {
		if colon := strings.IndexByte(repoURL[at:], ':'); colon >= 0 {
			host := repoURL[at+1 : at+colon]
			repoPath := strings.TrimSuffix(repoURL[at+colon+1:], ".git")
			if host != "" && repoPath != "" {
				return filepath.Join(baseDir, host, repoPath), nil
			}
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
