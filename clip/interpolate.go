package clip

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// partitionWidth is the number of characters per id_partition segment.
const partitionWidth = 4

// Subject is what a path template is rendered for.
type Subject struct {
	Class       string
	Attachment  string
	ID          string
	FileName    string
	Fingerprint string
}

// Interpolation renders one token of a path template.
type Interpolation func(s Subject) string

// Interpolator renders path templates such as
// ":class/:attachment/:id_partition/:filename". Tokens start with ':' and
// the longest registered token wins, so ":id_partition" is never read as
// ":id" followed by "_partition".
type Interpolator struct {
	mu     sync.RWMutex
	tokens map[string]Interpolation
	order  []string
}

// NewInterpolator returns an Interpolator with the built-in tokens:
// :class, :attachment, :id, :id_partition, :filename, :basename,
// :extension and :fingerprint.
func NewInterpolator() *Interpolator {
	in := &Interpolator{tokens: make(map[string]Interpolation)}
	in.Register("class", func(s Subject) string { return s.Class })
	in.Register("attachment", func(s Subject) string { return s.Attachment })
	in.Register("id", func(s Subject) string { return s.ID })
	in.Register("id_partition", func(s Subject) string { return IDPartition(s.ID) })
	in.Register("filename", func(s Subject) string { return s.FileName })
	in.Register("basename", func(s Subject) string {
		return strings.TrimSuffix(s.FileName, filepath.Ext(s.FileName))
	})
	in.Register("extension", func(s Subject) string {
		return strings.TrimPrefix(filepath.Ext(s.FileName), ".")
	})
	in.Register("fingerprint", func(s Subject) string { return s.Fingerprint })
	return in
}

// Register adds or replaces the token named name (without the colon).
func (in *Interpolator) Register(name string, fn Interpolation) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if _, ok := in.tokens[name]; !ok {
		in.order = append(in.order, name)
		sort.SliceStable(in.order, func(i, j int) bool { return len(in.order[i]) > len(in.order[j]) })
	}
	in.tokens[name] = fn
}

// Render replaces every known token of pattern. Unknown tokens are kept.
func (in *Interpolator) Render(pattern string, s Subject) string {
	in.mu.RLock()
	defer in.mu.RUnlock()

	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] != ':' {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		name, ok := in.match(pattern[i+1:])
		if !ok {
			b.WriteByte(':')
			i++
			continue
		}
		b.WriteString(in.tokens[name](s))
		i += 1 + len(name)
	}
	return b.String()
}

func (in *Interpolator) match(rest string) (string, bool) {
	for _, name := range in.order {
		if strings.HasPrefix(rest, name) {
			return name, true
		}
	}
	return "", false
}

// IDPartition splits id into 4-character segments joined by '/', so that
// "5f1a2b3c4d5e" becomes "5f1a/2b3c/4d5e". Trailing characters that do not
// fill a whole segment are dropped.
func IDPartition(id string) string {
	parts := make([]string, 0, len(id)/partitionWidth)
	for i := 0; i+partitionWidth <= len(id); i += partitionWidth {
		parts = append(parts, id[i:i+partitionWidth])
	}
	return strings.Join(parts, "/")
}
