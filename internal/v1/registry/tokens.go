package registry

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// TokenTTL is the implicit lifetime of an invite token.
const TokenTTL = 7 * 24 * time.Hour

const tokenBytes = 16

// Tokens is the persistent single-use invite-token registry. Values are unix
// issue times in seconds. Expired tokens are swept on load and on validate;
// they are never re-issued.
type Tokens struct {
	mu     sync.Mutex
	path   string
	tokens map[string]int64

	// now is swappable for expiry tests.
	now func() time.Time
}

// LoadTokens reads the registry at path, creating an empty one if the file is
// missing, and drops any token older than TokenTTL.
func LoadTokens(path string) (*Tokens, error) {
	t := &Tokens{path: path, tokens: make(map[string]int64), now: time.Now}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-reads the backing file and sweeps expired tokens.
func (t *Tokens) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		t.tokens = make(map[string]int64)
		return t.flushLocked()
	}
	if err != nil {
		return fmt.Errorf("reading token registry: %w", err)
	}

	tokens := make(map[string]int64)
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("parsing token registry %s: %w", t.path, err)
	}

	swept := false
	cutoff := t.now().Add(-TokenTTL).Unix()
	for tok, issued := range tokens {
		if issued < cutoff {
			delete(tokens, tok)
			swept = true
		}
	}
	t.tokens = tokens
	if swept {
		return t.flushLocked()
	}
	return nil
}

// Issue inserts a fresh random token with the current time and flushes.
func (t *Tokens) Issue() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reading token randomness: %w", err)
	}
	tok := base64.StdEncoding.EncodeToString(raw)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tokens[tok] = t.now().Unix()
	if err := t.flushLocked(); err != nil {
		delete(t.tokens, tok)
		return "", err
	}
	return tok, nil
}

// Validate consumes tok: it returns true iff tok is present and unexpired,
// removing it in that case (single use). An expired token is removed as well
// but still reports false. The check-delete-flush sequence runs under the
// registry mutex, so two concurrent REGISTERs cannot both consume one token.
func (t *Tokens) Validate(tok string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	issued, ok := t.tokens[tok]
	if !ok {
		return false, nil
	}
	delete(t.tokens, tok)
	if err := t.flushLocked(); err != nil {
		t.tokens[tok] = issued
		return false, err
	}
	expired := time.Unix(issued, 0).Add(TokenTTL).Before(t.now())
	return !expired, nil
}

// Active returns the unexpired tokens with their issue times, sorted by token.
func (t *Tokens) Active() []TokenInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-TokenTTL).Unix()
	infos := make([]TokenInfo, 0, len(t.tokens))
	for tok, issued := range t.tokens {
		if issued >= cutoff {
			infos = append(infos, TokenInfo{Token: tok, IssuedAt: time.Unix(issued, 0)})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Token < infos[j].Token })
	return infos
}

// TokenInfo is one unexpired token as reported by Active.
type TokenInfo struct {
	Token    string
	IssuedAt time.Time
}

func (t *Tokens) flushLocked() error {
	return writeJSON(t.path, t.tokens)
}
