package main

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/weberc2/blockfs/pkg/filesystem"
	. "github.com/weberc2/blockfs/pkg/types"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "blockfs.yaml")
	if err := ioutil.WriteFile(
		configFile,
		[]byte("devicePath: /tmp/disk.img\nblockCount: 64\naddr: :9000\n"),
		0644,
	); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("BLOCKFS_CONFIG_FILE", configFile)
	t.Setenv("BLOCKFS_ADDR", ":9001")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig(): unexpected err: %v", err)
	}
	wanted := Config{Addr: ":9001", Config: filesystem.DefaultConfig("/tmp/disk.img")}
	wanted.BlockCount = 64
	if *config != wanted {
		t.Fatalf("LoadConfig(): wanted `%+v`; found `%+v`", wanted, *config)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate(): unexpected err: %v", err)
	}
}

func TestLoadConfigStrict(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "blockfs.yaml")
	if err := ioutil.WriteFile(configFile, []byte("bogus: 1\n"), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("BLOCKFS_CONFIG_FILE", configFile)
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig(): wanted an error for an unknown key; found `nil`")
	}
}

func TestValidateMissingDevice(t *testing.T) {
	t.Setenv("BLOCKFS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig(): unexpected err: %v", err)
	}
	if config.Addr != "127.0.0.1:8080" {
		t.Fatalf("LoadConfig(): wanted default addr; found `%s`", config.Addr)
	}
	err = config.Validate()
	if !errors.Is(err, filesystem.MissingDevicePathErr) {
		t.Fatalf(
			"Validate(): wanted `%v`; found `%v`",
			filesystem.MissingDevicePathErr,
			err,
		)
	}
	if config.BlockCount != DeviceBlocks {
		t.Fatalf("LoadConfig(): wanted `%d` blocks; found `%d`", DeviceBlocks, config.BlockCount)
	}
}
