package filesystem

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

type Config struct {
	DevicePath         string `yaml:"devicePath" envconfig:"DEVICE_PATH"`
	BlockCount         Block  `yaml:"blockCount" envconfig:"BLOCK_COUNT"`
	RootOwner          int32  `yaml:"rootOwner" envconfig:"ROOT_OWNER"`
	RootPermissions    int32  `yaml:"rootPermissions" envconfig:"ROOT_PERMISSIONS"`
	DefaultPermissions int32  `yaml:"defaultPermissions" envconfig:"DEFAULT_PERMISSIONS"`
}

// DefaultConfig describes a full 4096-block device whose root is owned by
// uid 0.
func DefaultConfig(devicePath string) Config {
	return Config{
		DevicePath:         devicePath,
		BlockCount:         DeviceBlocks,
		RootOwner:          0,
		RootPermissions:    0x22,
		DefaultPermissions: 0x66,
	}
}

func (c *Config) Validate() error {
	if c.DevicePath == "" {
		return fmt.Errorf("validating config: %w", MissingDevicePathErr)
	}
	if c.BlockCount < 2 || c.BlockCount > DeviceBlocks {
		return fmt.Errorf(
			"validating config: block count `%d` not in [2, %d]: %w",
			c.BlockCount,
			DeviceBlocks,
			BlockOutOfRangeErr,
		)
	}
	return nil
}

const MissingDevicePathErr ConstError = "missing device path"
