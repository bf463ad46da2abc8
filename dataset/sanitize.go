package dataset

import (
	"fmt"
	"strings"
)

// 木モデルのバックエンドは [A-Za-z0-9_] 以外を含む特徴量名を受け付けない。
// 学習前にすべての特徴量名をサニタイズし、結果の表示には元の名前を使う。

// NameMapping is a bidirectional mapping between original feature names and
// their sanitized form. The zero value is not usable; build one with
// SanitizeNames.
type NameMapping struct {
	// Originals and Sanitizeds are parallel slices in column order.
	// They are exported so a mapping can be persisted with gob.
	Originals  []string
	Sanitizeds []string

	toSanitized map[string]string
	toOriginal  map[string]string
}

// SanitizeNames replaces every character outside [A-Za-z0-9_] with '_'.
// An empty result becomes "feature". When two names sanitize to the same
// value, later ones get "_2", "_3", ... appended in column order.
func SanitizeNames(names []string) *NameMapping {
	m := &NameMapping{
		Originals:  append([]string(nil), names...),
		Sanitizeds: make([]string, len(names)),
	}
	used := make(map[string]bool, len(names))
	for i, name := range names {
		base := sanitize(name)
		candidate := base
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", base, n)
		}
		used[candidate] = true
		m.Sanitizeds[i] = candidate
	}
	m.buildIndex()
	return m
}

func sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "feature"
	}
	return b.String()
}

// IsSanitized reports whether name only contains characters from [A-Za-z0-9_].
func IsSanitized(name string) bool {
	return name != "" && sanitize(name) == name
}

func (m *NameMapping) buildIndex() {
	m.toSanitized = make(map[string]string, len(m.Originals))
	m.toOriginal = make(map[string]string, len(m.Originals))
	for i, o := range m.Originals {
		m.toSanitized[o] = m.Sanitizeds[i]
		m.toOriginal[m.Sanitizeds[i]] = o
	}
}

func (m *NameMapping) ensureIndex() {
	if m.toSanitized == nil {
		m.buildIndex()
	}
}

// Sanitized returns the sanitized name of an original column.
func (m *NameMapping) Sanitized(original string) (string, bool) {
	m.ensureIndex()
	s, ok := m.toSanitized[original]
	return s, ok
}

// Original returns the original name of a sanitized column.
func (m *NameMapping) Original(sanitized string) (string, bool) {
	m.ensureIndex()
	o, ok := m.toOriginal[sanitized]
	return o, ok
}

// SanitizedNames returns the sanitized names in column order.
func (m *NameMapping) SanitizedNames() []string {
	return append([]string(nil), m.Sanitizeds...)
}

// OriginalNames maps a list of sanitized names back to original names.
// Unknown names are returned unchanged.
func (m *NameMapping) OriginalNames(sanitized []string) []string {
	out := make([]string, len(sanitized))
	for i, s := range sanitized {
		if o, ok := m.Original(s); ok {
			out[i] = o
		} else {
			out[i] = s
		}
	}
	return out
}

// Forward returns the original→sanitized map, suitable for Frame.Rename.
func (m *NameMapping) Forward() map[string]string {
	m.ensureIndex()
	out := make(map[string]string, len(m.toSanitized))
	for k, v := range m.toSanitized {
		out[k] = v
	}
	return out
}
