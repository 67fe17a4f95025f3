package models

import (
	"fmt"
	"strings"
)

var countTierPhrases = map[CountTier]string{
	CountTierUltraHigh: "馆藏极其丰富的重量级作家",
	CountTierHigh:      "作品丰富的知名作家",
	CountTierMedium:    "有一定作品积累的作家",
	CountTierLow:       "作品数量不多的作家",
	CountTierEmerging:  "馆藏较少的作家",
}

// Describe renders a short Chinese profile of the author, used in summaries
// and fallback reasons.
func (m *AuthorMatch) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s是%s，馆藏共%d部作品", m.CanonicalName, countTierPhrases[m.CountTier], m.BookCount)
	if len(m.Subjects) > 0 {
		fmt.Fprintf(&b, "，主要涉及%s", strings.Join(m.Subjects, "、"))
	}
	if len(m.RepresentativeTitles) > 0 {
		b.WriteString("，代表作有")
		for _, t := range m.RepresentativeTitles {
			fmt.Fprintf(&b, "《%s》", t)
		}
	}
	b.WriteString("。")
	return b.String()
}
