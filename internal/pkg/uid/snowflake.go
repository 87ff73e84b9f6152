package uid

import (
	"fmt"
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered int64 IDs.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake builds a generator whose node number is derived from the
// hostname, so replicas in one deployment rarely collide.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "otpgate"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return NewSnowflakeNode(int64(h.Sum32() % 1024))
}

// NewSnowflakeNode builds a generator for an explicit node number (0-1023).
func NewSnowflakeNode(node int64) (*Snowflake, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("uid: snowflake node %d: %w", node, err)
	}

	return &Snowflake{node: n}, nil
}

// Generate returns the next ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
