package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryKey(t *testing.T) {
	key := QueryKey("text-embedding-ada-002", "chronic pain")

	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.Equal(t, key, QueryKey("text-embedding-ada-002", "chronic pain"))
	assert.NotEqual(t, key, QueryKey("text-embedding-3-small", "chronic pain"))
	assert.NotEqual(t, key, QueryKey("text-embedding-ada-002", "chronic pain "))
}
