package snowflake

import (
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	gen, err := NewGeneratorWithNode(1, log.DefaultLogger)
	require.NoError(t, err)

	code1 := gen.GenerateIDString()
	code2 := gen.GenerateIDString()
	t.Logf("Generated codes: %s %s", code1, code2)

	assert.NotEqual(t, code1, code2)
	assert.Equal(t, strings.ToUpper(code1), code1)

	generatedAt, nodeID, err := ParseRefCode(code1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nodeID)
	assert.WithinDuration(t, time.Now(), generatedAt, time.Minute)
}

func TestGeneratorFromEnv(t *testing.T) {
	t.Setenv("FACTFIT_NODE_ID", "42")

	gen, err := NewGenerator(log.DefaultLogger)
	require.NoError(t, err)

	_, nodeID, err := ParseRefCode(gen.GenerateIDString())
	require.NoError(t, err)
	assert.Equal(t, int64(42), nodeID)
}

func TestGeneratorInvalidNodeID(t *testing.T) {
	tests := []struct {
		name   string
		nodeID int64
	}{
		{name: "超过1023", nodeID: 1024},
		{name: "负数", nodeID: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeneratorWithNode(tt.nodeID, log.DefaultLogger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "node ID must be between 0 and 1023")
		})
	}

	t.Setenv("FACTFIT_NODE_ID", "abc")
	_, err := NewGenerator(log.DefaultLogger)
	assert.Error(t, err)
}

func TestParseRefCodeInvalid(t *testing.T) {
	_, _, err := ParseRefCode("ORD-!!")
	assert.Error(t, err)
}
