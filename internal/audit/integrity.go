package audit

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

var (
	// ErrChainMismatch is returned when a log file's recomputed hash
	// chain does not match the recorded head.
	ErrChainMismatch = errors.New("audit: hash chain mismatch")
	// ErrBadSignature is returned when the chain head signature fails
	// verification.
	ErrBadSignature = errors.New("audit: invalid chain signature")
)

// Signer holds the Ed25519 keypair that signs chain heads.
type Signer struct {
	Public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// keyFile is the on-disk keypair representation.
type keyFile struct {
	Public  string `json:"public"`
	Private string `json:"private"`
}

// LoadOrCreateSigner reads the keypair at path, generating and
// persisting a fresh one when the file does not exist.
func LoadOrCreateSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var kf keyFile
		if err := json.Unmarshal(data, &kf); err != nil {
			return nil, fmt.Errorf("parse audit key file: %w", err)
		}
		pub, err := hex.DecodeString(kf.Public)
		if err != nil {
			return nil, fmt.Errorf("decode audit public key: %w", err)
		}
		priv, err := hex.DecodeString(kf.Private)
		if err != nil {
			return nil, fmt.Errorf("decode audit private key: %w", err)
		}
		if len(pub) != ed25519.PublicKeySize || len(priv) != ed25519.PrivateKeySize {
			return nil, errors.New("audit: malformed key file")
		}
		return &Signer{Public: pub, private: priv}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read audit key file: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate audit keypair: %w", err)
	}
	data, err = json.Marshal(keyFile{
		Public:  hex.EncodeToString(pub),
		Private: hex.EncodeToString(priv),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal audit key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("write audit key file: %w", err)
	}
	return &Signer{Public: pub, private: priv}, nil
}

// chainState is the sidecar file persisted next to each log file.
type chainState struct {
	Head      string `json:"head"`      // hex blake2b-256 chain head
	Signature string `json:"signature"` // hex ed25519 signature over the head
	Lines     int    `json:"lines"`
}

// Chain is a running blake2b hash chain over the lines of one log
// file: head(n) = blake2b(head(n-1) || line(n)). The head and its
// signature are persisted after every extension, so truncating or
// editing the log is detectable without re-reading it on append.
type Chain struct {
	path   string // sidecar state file: <log>.chain
	signer *Signer
	head   []byte
	lines  int
}

func chainPathFor(logPath string) string {
	return logPath + ".chain"
}

// OpenChain opens (or starts) the chain for the given log file.
func OpenChain(logPath string, signer *Signer) (*Chain, error) {
	if signer == nil {
		return nil, errors.New("audit: chain requires a signer")
	}
	c := &Chain{path: chainPathFor(logPath), signer: signer}

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain state: %w", err)
	}
	var st chainState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse chain state: %w", err)
	}
	head, err := hex.DecodeString(st.Head)
	if err != nil {
		return nil, fmt.Errorf("decode chain head: %w", err)
	}
	c.head = head
	c.lines = st.Lines
	return c, nil
}

// Extend folds one log line into the chain and persists the new head.
func (c *Chain) Extend(line []byte) error {
	c.head = fold(c.head, line)
	c.lines++

	sig := ed25519.Sign(c.signer.private, c.head)
	st := chainState{
		Head:      hex.EncodeToString(c.head),
		Signature: hex.EncodeToString(sig),
		Lines:     c.lines,
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal chain state: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0600); err != nil {
		return fmt.Errorf("write chain state: %w", err)
	}
	return nil
}

// fold computes the next chain head.
func fold(head, line []byte) []byte {
	h, _ := blake2b.New256(nil)
	h.Write(head)
	h.Write(line)
	return h.Sum(nil)
}

// VerifyFile recomputes the hash chain over logPath and checks it
// against the sidecar state and the signer's public key.
func VerifyFile(logPath string, public ed25519.PublicKey) (int, error) {
	data, err := os.ReadFile(chainPathFor(logPath))
	if err != nil {
		return 0, fmt.Errorf("read chain state: %w", err)
	}
	var st chainState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, fmt.Errorf("parse chain state: %w", err)
	}
	recordedHead, err := hex.DecodeString(st.Head)
	if err != nil {
		return 0, fmt.Errorf("decode chain head: %w", err)
	}
	sig, err := hex.DecodeString(st.Signature)
	if err != nil {
		return 0, fmt.Errorf("decode chain signature: %w", err)
	}

	f, err := os.Open(logPath)
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var head []byte
	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		head = fold(head, scanner.Bytes())
		lines++
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("scan audit log: %w", err)
	}

	if lines != st.Lines || !bytes.Equal(head, recordedHead) {
		return lines, ErrChainMismatch
	}
	if !ed25519.Verify(public, head, sig) {
		return lines, ErrBadSignature
	}
	return lines, nil
}
