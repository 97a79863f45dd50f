package pgroute

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Strategy names accepted in the config file.
const (
	StrategyTime     = "time"
	StrategyPosition = "position"
	StrategySticky   = "sticky"
)

// YAMLNodeConfig describes one endpoint in the cluster config file.
type YAMLNodeConfig struct {
	ID       string `yaml:"id"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Node converts the config entry to a descriptor with the given role.
func (ync YAMLNodeConfig) Node(role Role) Node {
	return Node{
		ID:       ync.ID,
		Host:     ync.Host,
		Port:     ync.Port,
		Database: ync.Database,
		User:     ync.User,
		Password: ync.Password,
		Role:     role,
	}
}

// YAMLClusterConfig is the static routing configuration: exactly one primary
// and any number of replicas, plus the active strategy.
type YAMLClusterConfig struct {
	Primary               YAMLNodeConfig   `yaml:"primary"`
	Replicas              []YAMLNodeConfig `yaml:"replicas"`
	Strategy              string           `yaml:"strategy"`
	WriteThresholdSeconds uint64           `yaml:"writeThresholdSeconds"`
	RequestTimeoutSeconds uint64           `yaml:"requestTimeoutSeconds"`
}

// LoadFromFile reads and validates the cluster config.
func (ycc *YAMLClusterConfig) LoadFromFile(file string) error {
	rawConfig, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(rawConfig, ycc); err != nil {
		return err
	}
	return ycc.Validate()
}

// Validate checks the configuration before anything is dialed.
func (ycc *YAMLClusterConfig) Validate() error {
	if ycc.Primary.Host == "" || ycc.Primary.Port == 0 {
		return ClientError{ErrConfiguration, "primary endpoint requires host and port"}
	}

	ids := map[string]bool{nodeID(ycc.Primary, 0, PrimaryRole): true}
	for i, replica := range ycc.Replicas {
		if replica.Host == "" || replica.Port == 0 {
			return ClientError{ErrConfiguration, fmt.Sprintf("replica %d requires host and port", i)}
		}
		id := nodeID(replica, i, ReplicaRole)
		if ids[id] {
			return ClientError{ErrConfiguration, fmt.Sprintf("duplicate node id %q", id)}
		}
		ids[id] = true
	}

	switch ycc.Strategy {
	case StrategyTime, StrategyPosition, StrategySticky:
	case "":
		ycc.Strategy = StrategyTime
	default:
		return ClientError{ErrConfiguration, fmt.Sprintf("unknown strategy %q", ycc.Strategy)}
	}

	if ycc.Primary.ID == "" {
		ycc.Primary.ID = "primary"
	}
	for i := range ycc.Replicas {
		if ycc.Replicas[i].ID == "" {
			ycc.Replicas[i].ID = fmt.Sprintf("replica%d", i+1)
		}
	}
	return nil
}

// WriteThreshold returns the configured time-router threshold, or zero when
// unset so the router applies its default.
func (ycc *YAMLClusterConfig) WriteThreshold() time.Duration {
	return time.Duration(ycc.WriteThresholdSeconds) * time.Second
}

// RequestTimeout returns the configured per-request timeout, or zero when
// unset so connections apply DefaultTimeout.
func (ycc *YAMLClusterConfig) RequestTimeout() time.Duration {
	return time.Duration(ycc.RequestTimeoutSeconds) * time.Second
}

func nodeID(nc YAMLNodeConfig, index int, role Role) string {
	if nc.ID != "" {
		return nc.ID
	}
	if role == PrimaryRole {
		return "primary"
	}
	return fmt.Sprintf("replica%d", index+1)
}
