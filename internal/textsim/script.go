package textsim

import (
	"maps"
	"slices"
	"strings"
)

// DefaultScriptTable maps simplified characters to their traditional form.
// It only covers characters observed in catalog author names and subjects;
// extend it through NewScriptNormalizer rather than editing it in place.
var DefaultScriptTable = map[rune]rune{
	'鲁': '魯', '说': '說', '书': '書', '学': '學', '计': '計',
	'机': '機', '数': '數', '历': '歷', '经': '經', '济': '濟',
	'艺': '藝', '术': '術', '华': '華', '国': '國', '语': '語',
	'诗': '詩', '爱': '愛', '张': '張', '东': '東', '马': '馬',
	'龙': '龍', '红': '紅', '梦': '夢', '传': '傳', '记': '記',
	'钱': '錢', '钟': '鍾', '刘': '劉', '从': '從', '写': '寫',
}

// ScriptNormalizer converts text between simplified and traditional script
// one character at a time. Characters missing from the table pass through.
// The two directions are not guaranteed to be inverses of each other.
type ScriptNormalizer struct {
	toTrad map[rune]rune
	toSimp map[rune]rune
}

// NewScriptNormalizer builds a normalizer from a simplified→traditional table.
// A nil table selects DefaultScriptTable.
func NewScriptNormalizer(table map[rune]rune) *ScriptNormalizer {
	if table == nil {
		table = DefaultScriptTable
	}
	n := &ScriptNormalizer{
		toTrad: make(map[rune]rune, len(table)),
		toSimp: make(map[rune]rune, len(table)),
	}
	// sorted so the reverse of a many-to-one table is stable: the lowest
	// simplified code point wins
	for _, simp := range slices.Sorted(maps.Keys(table)) {
		trad := table[simp]
		n.toTrad[simp] = trad
		if _, exists := n.toSimp[trad]; !exists {
			n.toSimp[trad] = simp
		}
	}
	return n
}

var defaultNormalizer = NewScriptNormalizer(nil)

// ToTraditional converts text with the default table.
func ToTraditional(text string) string { return defaultNormalizer.ToTraditional(text) }

// ToSimplified converts text with the default table.
func ToSimplified(text string) string { return defaultNormalizer.ToSimplified(text) }

// Variants returns the script variants of text under the default table.
func Variants(text string) []string { return defaultNormalizer.Variants(text) }

// ToTraditional substitutes every simplified character known to the table.
func (n *ScriptNormalizer) ToTraditional(text string) string {
	return substitute(text, n.toTrad)
}

// ToSimplified substitutes every traditional character known to the table.
func (n *ScriptNormalizer) ToSimplified(text string) string {
	return substitute(text, n.toSimp)
}

// Variants returns text plus its traditional and simplified forms, deduplicated
// and in that order.
func (n *ScriptNormalizer) Variants(text string) []string {
	out := []string{text}
	for _, v := range []string{n.ToTraditional(text), n.ToSimplified(text)} {
		dup := false
		for _, seen := range out {
			if seen == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func substitute(text string, table map[rune]rune) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if mapped, ok := table[r]; ok {
			sb.WriteRune(mapped)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
