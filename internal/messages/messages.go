// internal/messages/messages.go
//
// Encoded message list for challenges that arrive without an input, and
// for the daily challenge.
//
// Initialization behavior (Init):
//   1. If a path is given (config MESSAGES_FILE), load messages from that file.
//   2. Otherwise fall back to the embedded assets/messages.txt.
//
// File format: one encoded message per line; blank lines and lines starting
// with '#' are skipped. Messages are kept verbatim (case and punctuation are
// part of the ciphertext).
//
// Initialization is run once (sync.Once).

package messages

import (
	"bufio"
	"crypto/rand"
	"errors"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/robalobadob/starcipher/assets"
)

// ErrEmpty is returned by Init when no message could be loaded.
var ErrEmpty = errors.New("messages: list is empty")

// fallback keeps the server usable if Init was never called.
const fallback = "!ltzwE ,wttmP"

var (
	initOnce   sync.Once
	list       []string
	initialErr error
)

// Init loads the message list exactly once, from path or the embedded
// defaults when path is empty. Later calls return the first result.
func Init(path string) error {
	initOnce.Do(func() {
		list, initialErr = load(path)
	})
	return initialErr
}

// load reads path, or the embedded defaults when path is empty.
func load(path string) ([]string, error) {
	var (
		out []string
		err error
	)
	if path != "" {
		out, err = readFile(path)
	} else {
		out, err = assets.MessagesList()
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

// All returns the loaded messages.
func All() []string {
	return list
}

// Random returns a cryptographically random message.
// If nothing is loaded it returns a fixed fallback.
func Random() string {
	if len(list) == 0 {
		return fallback
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	return list[n.Int64()]
}

// Stats returns how many messages are loaded.
func Stats() int {
	return len(list)
}
