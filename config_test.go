package mongrel2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{
		"app_id": "chat",
		"send_spec": "tcp://127.0.0.1:9999",
		"recv_spec": "tcp://127.0.0.1:9998"
	}`), 0o644))

	cfg, err := LoadConfigFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "chat", cfg.AppID)
	assert.Equal(t, "tcp://127.0.0.1:9999", cfg.SendSpec)
	assert.Equal(t, "tcp://127.0.0.1:9998", cfg.RecvSpec)
}

func TestLoadConfigFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
app_id = "chat"
send_spec = "tcp://127.0.0.1:9999"
recv_spec = "tcp://127.0.0.1:9998"
`), 0o644))

	cfg, err := LoadConfigFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "chat", cfg.AppID)
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("app_id: chat\nsend_spec: tcp://a\nrecv_spec: tcp://b\n"), 0o644))

	cfg, err := LoadConfigFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "chat", cfg.AppID)
	assert.Equal(t, "tcp://a", cfg.SendSpec)
}

func TestLoadConfigFileUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.ini")
	assert.NoError(t, os.WriteFile(path, []byte("app_id=chat"), 0o644))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)
}

func TestResolveConfigDirect(t *testing.T) {
	cfg, err := ResolveConfig(nil, "chat", "tcp://send", "tcp://recv")
	assert.NoError(t, err)
	assert.Equal(t, "tcp://send", cfg.SendSpec)
}

func TestResolveConfigFromStore(t *testing.T) {
	store := StaticConfigStore{
		"chat": {"tcp://send", "tcp://recv"},
	}

	cfg, err := ResolveConfig(store, "chat", "", "")
	assert.NoError(t, err)
	assert.Equal(t, "tcp://send", cfg.SendSpec)
	assert.Equal(t, "tcp://recv", cfg.RecvSpec)
}

func TestResolveConfigNotFound(t *testing.T) {
	store := StaticConfigStore{}

	_, err := ResolveConfig(store, "missing", "", "")
	assert.Error(t, err)
}
