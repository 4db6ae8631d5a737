package cli

import (
	"github.com/opencontent-labs/c2pa-go/pkg/jumbf"
)

// dumpBoxTree logs one structured line per box in the tree rooted at
// root, per SPEC_FULL §4.N's --boxdebug behavior.
func dumpBoxTree(root *jumbf.Box) {
	walkBoxes(root, 0)
}

func walkBoxes(b *jumbf.Box, depth int) {
	entry := log.WithFields(map[string]interface{}{
		"depth":    depth,
		"boxType":  b.BoxType.String(),
		"sparse":   b.Sparse,
		"isContainer": b.IsContainer(),
	})
	if d, ok := b.Typed().(*jumbf.Description); ok {
		entry = entry.WithFields(map[string]interface{}{
			"label":       d.Label,
			"requestable": d.Requestable,
		})
	}
	entry.Debug("box")

	if !b.IsContainer() {
		return
	}
	for _, child := range b.Children() {
		walkBoxes(child, depth+1)
	}
}
