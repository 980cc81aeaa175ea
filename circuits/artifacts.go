package circuits

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
	"strings"

	"github.com/zktoken/zktoken-core/log"
)

// CheckHashes determines whether artifact hashes are verified on load and
// download. It can be disabled by setting ZKTOKEN_CHECK_HASHES to false or 0.
var CheckHashes = true

// BaseDir is the local artifact cache. Artifacts missing from it are
// downloaded and stored there, keyed by their sha256. Defaults to the
// ZKTOKEN_ARTIFACTS_DIR env var or the user cache directory.
var BaseDir string

func init() {
	if checkHashes := os.Getenv("ZKTOKEN_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("ZKTOKEN_ARTIFACTS_DIR"); dir != "" {
		BaseDir = dir
		return
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		BaseDir = filepath.Join(os.TempDir(), "zktoken-artifacts")
		return
	}
	BaseDir = filepath.Join(home, ".cache", "zktoken-artifacts")
}

// RemoteArtifact is one circuit file: its download URL and the sha256 of its
// content. The content is filled by Load or Download.
type RemoteArtifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// Load fills the content from the local cache, verifying the hash. It is a
// no-op when the content is already present.
func (a *RemoteArtifact) Load() error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := loadCached(a.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		return fmt.Errorf("artifact not found in cache")
	}
	a.Content = content
	return nil
}

// Download fetches the artifact into the cache. It is a no-op when the cache
// already holds a file with the expected hash.
func (a *RemoteArtifact) Download(ctx context.Context) error {
	if cached, err := loadCached(a.Hash); err == nil && cached != nil {
		return nil
	}
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not cached and no remote url provided")
	}
	return downloadAndStore(ctx, a.Hash, a.RemoteURL)
}

// StatementArtifacts bundles the three files of one statement: the compiled
// circuit, the proving key and the verification key.
type StatementArtifacts struct {
	Circuit      *RemoteArtifact
	ProvingKey   *RemoteArtifact
	VerifyingKey *RemoteArtifact
}

// LoadAll loads the three artifacts from the cache into memory.
func (sa *StatementArtifacts) LoadAll() error {
	for name, a := range map[string]*RemoteArtifact{
		"circuit":          sa.Circuit,
		"proving key":      sa.ProvingKey,
		"verification key": sa.VerifyingKey,
	} {
		if a == nil {
			continue
		}
		if err := a.Load(); err != nil {
			return fmt.Errorf("error loading %s: %w", name, err)
		}
	}
	return nil
}

// DownloadAll fetches any artifact missing from the cache.
func (sa *StatementArtifacts) DownloadAll(ctx context.Context) error {
	for name, a := range map[string]*RemoteArtifact{
		"circuit":          sa.Circuit,
		"proving key":      sa.ProvingKey,
		"verification key": sa.VerifyingKey,
	} {
		if a == nil {
			continue
		}
		if err := a.Download(ctx); err != nil {
			return fmt.Errorf("error downloading %s: %w", name, err)
		}
	}
	return nil
}

// Prover builds a rapidsnark prover from the loaded artifacts.
func (sa *StatementArtifacts) Prover() (*RapidsnarkProver, error) {
	if sa.Circuit == nil || sa.ProvingKey == nil {
		return nil, fmt.Errorf("statement artifacts missing circuit or proving key")
	}
	if err := sa.LoadAll(); err != nil {
		return nil, err
	}
	return NewRapidsnarkProver(Artifacts{
		Wasm:       sa.Circuit.Content,
		ProvingKey: sa.ProvingKey.Content,
	})
}

func cachePath(hash []byte) string {
	return filepath.Join(BaseDir, hex.EncodeToString(hash))
}

// loadCached reads an artifact from the cache by hash. A missing file is
// (nil, nil), not an error.
func loadCached(hash []byte) ([]byte, error) {
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating the cache directory: %w", err)
	}
	path := cachePath(hash)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x",
				path, hash, fileHash)
		}
	}
	return content, nil
}

// downloadAndStore fetches a file and moves it into the cache after the hash
// check. The download goes to a .partial file first so an interrupted fetch
// never poisons the cache.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileURL string) error {
	if err := os.MkdirAll(BaseDir, 0o755); err != nil {
		return fmt.Errorf("error creating the cache directory: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err)
		}
	}()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("error downloading file %s: http status: %d", fileURL, res.StatusCode)
	}

	path := cachePath(expectedHash)
	partialPath := path + ".partial"
	fd, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(fd, hasher), res.Body)
	if closeErr := fd.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("error copying data to file: %w", err)
	}
	log.Debugw("artifact downloaded", "url", fileURL, "bytes", written)

	if CheckHashes {
		computedHash := hasher.Sum(nil)
		if !bytes.Equal(computedHash, expectedHash) {
			if err := os.Remove(partialPath); err != nil {
				log.Warnw("failed to remove invalid artifact", "error", err)
			}
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computedHash)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
