package circuits

import (
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
)

// withTestCache points the artifact cache at a temp directory for the test.
func withTestCache(t *testing.T) {
	prev := BaseDir
	BaseDir = t.TempDir()
	t.Cleanup(func() { BaseDir = prev })
}

func TestArtifactLoadFromCache(t *testing.T) {
	c := qt.New(t)
	withTestCache(t)

	content := []byte("compiled circuit bytes")
	hash := sha256.Sum256(content)
	c.Assert(os.WriteFile(cachePath(hash[:]), content, 0o644), qt.IsNil)

	a := &RemoteArtifact{Hash: hash[:]}
	c.Assert(a.Load(), qt.IsNil)
	c.Assert(a.Content, qt.DeepEquals, content)

	// loading again is a no-op
	c.Assert(a.Load(), qt.IsNil)

	// a missing artifact is an error
	missing := sha256.Sum256([]byte("missing"))
	c.Assert((&RemoteArtifact{Hash: missing[:]}).Load(), qt.IsNotNil)

	// so is an artifact without a hash
	c.Assert((&RemoteArtifact{}).Load(), qt.IsNotNil)
}

func TestArtifactCacheHashMismatch(t *testing.T) {
	c := qt.New(t)
	withTestCache(t)

	content := []byte("tampered content")
	hash := sha256.Sum256([]byte("expected content"))
	c.Assert(os.WriteFile(cachePath(hash[:]), content, 0o644), qt.IsNil)

	c.Assert((&RemoteArtifact{Hash: hash[:]}).Load(), qt.IsNotNil)
}

func TestArtifactDownload(t *testing.T) {
	c := qt.New(t)
	withTestCache(t)

	content := []byte("proving key bytes")
	hash := sha256.Sum256(content)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write(content); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	a := &RemoteArtifact{RemoteURL: srv.URL, Hash: hash[:]}
	c.Assert(a.Download(context.Background()), qt.IsNil)
	c.Assert(a.Load(), qt.IsNil)
	c.Assert(a.Content, qt.DeepEquals, content)

	// cache-only artifacts need no URL once downloaded
	cached := &RemoteArtifact{Hash: hash[:]}
	c.Assert(cached.Download(context.Background()), qt.IsNil)
	c.Assert(cached.Load(), qt.IsNil)

	// a download whose content does not match the declared hash is refused
	wrong := sha256.Sum256([]byte("something else"))
	bad := &RemoteArtifact{RemoteURL: srv.URL, Hash: wrong[:]}
	c.Assert(bad.Download(context.Background()), qt.IsNotNil)
}

func TestStatementArtifactsProver(t *testing.T) {
	c := qt.New(t)
	withTestCache(t)

	store := func(content []byte) *RemoteArtifact {
		hash := sha256.Sum256(content)
		c.Assert(os.WriteFile(cachePath(hash[:]), content, 0o644), qt.IsNil)
		return &RemoteArtifact{Hash: hash[:]}
	}
	sa := &StatementArtifacts{
		Circuit:    store([]byte("wasm bytes")),
		ProvingKey: store([]byte("zkey bytes")),
	}
	c.Assert(sa.DownloadAll(context.Background()), qt.IsNil)

	prover, err := sa.Prover()
	c.Assert(err, qt.IsNil)
	c.Assert(prover, qt.IsNotNil)

	// a bundle missing its proving key cannot build a prover
	empty := &StatementArtifacts{Circuit: store([]byte("wasm bytes"))}
	_, err = empty.Prover()
	c.Assert(err, qt.IsNotNil)
}
