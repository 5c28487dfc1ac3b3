package model

import (
	"fmt"
	"strings"
)

// Describe renders the model one variable per line in declaration order:
//
//	name ~ Family(params) shape=(dims) [observed] [pinned=k]
func (m *Model) Describe() string {
	var sb strings.Builder
	for _, v := range m.vars {
		fmt.Fprintf(&sb, "%s ~ %s shape=%s", v.Name, v.Dist, v.Shape)
		if v.IsObserved() {
			sb.WriteString(" observed")
		}
		if k := v.PinnedCount(); k > 0 {
			fmt.Fprintf(&sb, " pinned=%d", k)
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
