package mongrel2

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the set of values a handler needs to open its Connection:
// app_id, send_spec, recv_spec.
type Config struct {
	AppID    string `mapstructure:"app_id"`
	SendSpec string `mapstructure:"send_spec"`
	RecvSpec string `mapstructure:"recv_spec"`
}

// LoadConfigFile parses a JSON, TOML, or YAML configuration file (selected
// by its extension) into a Config: unmarshal into a generic map, then
// `mapstructure.Decode` it into the typed struct.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := map[string]interface{}{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, &m)
	case ".toml":
		err = toml.Unmarshal(b, &m)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &m)
	default:
		err = fmt.Errorf("mongrel2: unsupported configuration file extension: %s", ext)
	}

	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := mapstructure.Decode(m, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigStore is the lookup interface an external configuration database
// implements: given a handler's send identity, return its
// (send_spec, recv_spec) pair.
type ConfigStore interface {
	FindHandlerBySendIdent(appID string) (sendSpec, recvSpec string, ok bool)
}

// StaticConfigStore is a ConfigStore backed by a plain map, for tests and
// for handlers that already know their own routing without a database.
type StaticConfigStore map[string][2]string

// FindHandlerBySendIdent implements the `ConfigStore`.
func (s StaticConfigStore) FindHandlerBySendIdent(appID string) (sendSpec, recvSpec string, ok bool) {
	specs, ok := s[appID]
	if !ok {
		return "", "", false
	}

	return specs[0], specs[1], true
}

// ResolveConfig builds a Config either directly from the given appID,
// sendSpec, recvSpec (when sendSpec is non-empty), or by deriving them from
// store, looking up a handler row keyed by send_ident = appID.
func ResolveConfig(store ConfigStore, appID, sendSpec, recvSpec string) (*Config, error) {
	if sendSpec != "" {
		return &Config{AppID: appID, SendSpec: sendSpec, RecvSpec: recvSpec}, nil
	}

	send, recv, ok := store.FindHandlerBySendIdent(appID)
	if !ok {
		return nil, fmt.Errorf("mongrel2: no handler registered for send_ident %q", appID)
	}

	return &Config{AppID: appID, SendSpec: send, RecvSpec: recv}, nil
}
