// Package serial issues human-readable trip serial numbers.
package serial

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const Prefix = "TRP-"

type Generator struct {
	node *snowflake.Node
}

// NewGenerator expects a node id in [0, 1023]; every service replica needs its own.
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() string {
	return Prefix + strings.ToUpper(g.node.Generate().Base36())
}
