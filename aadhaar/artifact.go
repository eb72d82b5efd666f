package aadhaar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vocdoni/aadhaar-relief/log"
)

// Artifact is a file identified by the sha256 hash of its content, such as
// the verification key of the Anon Aadhaar circuit. It is cached on disk
// under its hash and downloaded from RemoteURL when missing.
type Artifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// NewArtifact creates an artifact from the remote URL and the hex encoded
// sha256 hash of its content.
func NewArtifact(remoteURL, hexHash string) (*Artifact, error) {
	hash, err := hex.DecodeString(hexHash)
	if err != nil || len(hash) != sha256.Size {
		return nil, fmt.Errorf("invalid artifact hash %q", hexHash)
	}
	return &Artifact{RemoteURL: remoteURL, Hash: hash}, nil
}

// path returns the location of the artifact in the cache directory.
func (a *Artifact) path(dir string) string {
	return filepath.Join(dir, hex.EncodeToString(a.Hash))
}

// Load reads the artifact from the cache directory and checks its hash. It
// returns os.ErrNotExist if the artifact is not cached.
func (a *Artifact) Load(dir string) error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := os.ReadFile(a.path(dir))
	if err != nil {
		return err
	}
	if sum := sha256.Sum256(content); !bytes.Equal(sum[:], a.Hash) {
		return fmt.Errorf("hash mismatch for %s: expected %x, got %x", a.path(dir), a.Hash, sum)
	}
	a.Content = content
	return nil
}

// Download fetches the artifact from its remote URL into the cache
// directory. The content is written to a partial file and only renamed once
// its hash matches.
func (a *Artifact) Download(ctx context.Context, dir string) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not cached and remote url not provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating the artifacts directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.RemoteURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the artifact request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error downloading artifact: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading artifact %s: http status: %d", a.RemoteURL, res.StatusCode)
	}

	partialPath := a.path(dir) + ".partial"
	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(fd, hasher), res.Body)
	if cerr := fd.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(partialPath)
		return fmt.Errorf("error writing artifact file: %w", err)
	}
	if sum := hasher.Sum(nil); !bytes.Equal(sum, a.Hash) {
		_ = os.Remove(partialPath)
		return fmt.Errorf("hash mismatch: expected %x, got %x", a.Hash, sum)
	}
	if err := os.Rename(partialPath, a.path(dir)); err != nil {
		return fmt.Errorf("error renaming artifact file: %w", err)
	}
	log.Infow("artifact downloaded", "url", a.RemoteURL, "bytes", n, "hash", hex.EncodeToString(a.Hash))
	return nil
}

// Fetch loads the artifact from the cache directory, downloading it first if
// it is not there.
func (a *Artifact) Fetch(ctx context.Context, dir string) error {
	err := a.Load(dir)
	if err == nil || !os.IsNotExist(err) {
		return err
	}
	if err := a.Download(ctx, dir); err != nil {
		return err
	}
	return a.Load(dir)
}
