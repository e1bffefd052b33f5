// assets/embed.go
//
// Files compiled into the binary:
//   - messages.txt: default encoded messages (one per line, # comments).
//   - sql/*.sql:    schema migrations, applied in lexical order.

package assets

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"
)

//go:embed messages.txt sql/*.sql
var FS embed.FS

// Migrations is the sql directory as its own file system.
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		// The directory is embedded above; Sub only fails on a bad path.
		panic(err)
	}
	return sub
}

// readLines returns the non-empty, non-comment lines of an embedded file.
// Lines are trimmed but otherwise kept as-is: case matters to the cipher.
func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// MessagesList returns the embedded encoded messages.
func MessagesList() ([]string, error) {
	return readLines("messages.txt")
}
