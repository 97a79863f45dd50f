package pgroute

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadClusterConfig(t *testing.T) {
	file := writeConfig(t, `
primary:
  id: primary
  host: localhost
  port: 5432
  database: testdb
  user: postgres
  password: postgres
replicas:
  - host: localhost
    port: 5433
    database: testdb
    user: postgres
    password: postgres
  - host: localhost
    port: 5434
    database: testdb
    user: postgres
    password: postgres
strategy: position
writeThresholdSeconds: 10
`)

	var config YAMLClusterConfig
	require.NoError(t, config.LoadFromFile(file))

	assert.Equal(t, "primary", config.Primary.ID)
	assert.Equal(t, StrategyPosition, config.Strategy)
	assert.Equal(t, "10s", config.WriteThreshold().String())
	require.Len(t, config.Replicas, 2)
	// Missing replica ids are filled in deterministically.
	assert.Equal(t, "replica1", config.Replicas[0].ID)
	assert.Equal(t, "replica2", config.Replicas[1].ID)

	node := config.Replicas[0].Node(ReplicaRole)
	assert.Equal(t, ReplicaRole, node.Role)
	assert.Equal(t, "localhost:5433", node.Addr())
}

func TestClusterConfigDefaultsStrategy(t *testing.T) {
	config := YAMLClusterConfig{
		Primary: YAMLNodeConfig{Host: "localhost", Port: 5432},
	}
	require.NoError(t, config.Validate())
	assert.Equal(t, StrategyTime, config.Strategy)
}

func TestClusterConfigRejectsUnknownStrategy(t *testing.T) {
	config := YAMLClusterConfig{
		Primary:  YAMLNodeConfig{Host: "localhost", Port: 5432},
		Strategy: "quorum",
	}

	err := config.Validate()
	require.Error(t, err)
	var clierr ClientError
	require.ErrorAs(t, err, &clierr)
	assert.Equal(t, uint32(ErrConfiguration), clierr.Code)
}

func TestClusterConfigRejectsMissingPrimary(t *testing.T) {
	config := YAMLClusterConfig{}
	assert.Error(t, config.Validate())
}

func TestClusterConfigRejectsDuplicateIDs(t *testing.T) {
	config := YAMLClusterConfig{
		Primary: YAMLNodeConfig{ID: "n1", Host: "localhost", Port: 5432},
		Replicas: []YAMLNodeConfig{
			{ID: "n2", Host: "localhost", Port: 5433},
			{ID: "n2", Host: "localhost", Port: 5434},
		},
	}
	assert.Error(t, config.Validate())
}
