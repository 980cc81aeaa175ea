// Command zkwallet runs a shielded wallet node: it loads or generates the
// shielded keypair, restores the persisted state, fetches the circuit
// artifacts into the local cache, and serves the local status API.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.vocdoni.io/dvote/db/metadb"

	"github.com/zktoken/zktoken-core/api"
	"github.com/zktoken/zktoken-core/circuits"
	"github.com/zktoken/zktoken-core/crypto/keys"
	"github.com/zktoken/zktoken-core/engine"
	"github.com/zktoken/zktoken-core/log"
	"github.com/zktoken/zktoken-core/storage"
)

const artifactSpecUsage = "as <url>#<sha256> to download, or <sha256> to load from the cache"

func main() {
	dataDir := flag.String("dataDir", "./zkwallet-data", "data directory for the wallet database")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	apiHost := flag.String("apiHost", "127.0.0.1", "status API host")
	apiPort := flag.Int("apiPort", 9095, "status API port")
	privKeyHex := flag.String("privkey", "", "shielded private key in hex (generated if empty)")
	transferCircuit := flag.String("transferCircuit", "", "transfer circuit "+artifactSpecUsage)
	transferZkey := flag.String("transferZkey", "", "transfer proving key "+artifactSpecUsage)
	transferVkey := flag.String("transferVkey", "", "transfer verification key "+artifactSpecUsage)
	withdrawCircuit := flag.String("withdrawCircuit", "", "withdraw circuit "+artifactSpecUsage)
	withdrawZkey := flag.String("withdrawZkey", "", "withdraw proving key "+artifactSpecUsage)
	withdrawVkey := flag.String("withdrawVkey", "", "withdraw verification key "+artifactSpecUsage)
	flag.Parse()

	log.Init(*logLevel, "stdout", nil)
	ctx := context.Background()

	kp, err := loadOrGenerateKeys(*privKeyHex)
	if err != nil {
		log.Fatal(err)
	}

	database, err := metadb.New("pebble", *dataDir)
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)
	defer stg.Close()

	transferProver, transferVk, err := loadStatement(ctx, *transferCircuit, *transferZkey, *transferVkey)
	if err != nil {
		log.Fatal(err)
	}
	withdrawProver, withdrawVk, err := loadStatement(ctx, *withdrawCircuit, *withdrawZkey, *withdrawVkey)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := engine.New(engine.Config{
		Keys:           kp,
		Submitter:      &noopSubmitter{},
		TransferProver: transferProver,
		WithdrawProver: withdrawProver,
		TransferVKey:   transferVk,
		WithdrawVKey:   withdrawVk,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := restoreState(eng, stg); err != nil {
		log.Fatal(err)
	}

	if _, err := api.New(&api.APIConfig{
		Host:   *apiHost,
		Port:   *apiPort,
		Engine: eng,
	}); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutting down")
	kp.Zeroize()
}

// loadOrGenerateKeys builds the wallet keypair from the hex private key, or
// samples a fresh one when none is given.
func loadOrGenerateKeys(privKeyHex string) (*keys.KeyPair, error) {
	if privKeyHex == "" {
		kp, err := keys.Generate()
		if err != nil {
			return nil, err
		}
		log.Infow("generated fresh shielded keypair")
		return kp, nil
	}
	raw, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return nil, err
	}
	return keys.FromPrivate(new(big.Int).SetBytes(raw))
}

// parseArtifact parses an artifact spec of the form "<url>#<sha256>" or a
// bare "<sha256>" for cache-only loading.
func parseArtifact(spec string) (*circuits.RemoteArtifact, error) {
	url, hashHex := "", spec
	if i := strings.LastIndex(spec, "#"); i >= 0 {
		url, hashHex = spec[:i], spec[i+1:]
	}
	hash, err := hex.DecodeString(hashHex)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("artifact spec %q: expected a sha256 hex digest", spec)
	}
	return &circuits.RemoteArtifact{RemoteURL: url, Hash: hash}, nil
}

// loadStatement resolves one statement's circuit artifacts through the local
// cache, downloading whatever is missing, and builds its prover. Empty specs
// yield a nil prover: the wallet can still scan and deposit without proving
// locally.
func loadStatement(ctx context.Context, circuitSpec, zkeySpec, vkeySpec string) (circuits.Prover, []byte, error) {
	if circuitSpec == "" || zkeySpec == "" {
		return nil, nil, nil
	}
	circuit, err := parseArtifact(circuitSpec)
	if err != nil {
		return nil, nil, err
	}
	zkey, err := parseArtifact(zkeySpec)
	if err != nil {
		return nil, nil, err
	}
	sa := &circuits.StatementArtifacts{Circuit: circuit, ProvingKey: zkey}
	if vkeySpec != "" {
		if sa.VerifyingKey, err = parseArtifact(vkeySpec); err != nil {
			return nil, nil, err
		}
	}
	if err := sa.DownloadAll(ctx); err != nil {
		return nil, nil, err
	}
	prover, err := sa.Prover()
	if err != nil {
		return nil, nil, err
	}
	var vkeyContent []byte
	if sa.VerifyingKey != nil {
		vkeyContent = sa.VerifyingKey.Content
	}
	return prover, vkeyContent, nil
}

// restoreState replays persisted leaves and notes into the engine.
func restoreState(eng *engine.Engine, stg *storage.Storage) error {
	leaves, err := stg.Leaves()
	if err != nil {
		return err
	}
	for _, leaf := range leaves {
		if _, _, err := eng.Tree().Insert(leaf); err != nil {
			return err
		}
	}
	notes, err := stg.Notes()
	if err != nil {
		return err
	}
	for _, n := range notes {
		if err := eng.Notes().Save(n); err != nil {
			return err
		}
	}
	lastBlock, err := stg.LastBlock()
	if err != nil {
		return err
	}
	log.Infow("state restored", "leaves", len(leaves), "notes", len(notes), "lastBlock", lastBlock)
	return nil
}
