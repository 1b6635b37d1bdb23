package configuration

import (
	"fmt"
	"os"
	"strconv"

	"github.com/elazar/flystream/internal/buffer"
)

type genericConfigProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// ConfigProviderImpl reads configuration files through a generic reader
// and overlays the process environment.
type ConfigProviderImpl struct {
	GenericConfigReader genericConfigProvider

	// LookupEnv reads the process environment, defaulting to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// NewConfigProvider returns a pointer to a new [ConfigProviderImpl] reading
// files with a [GodotenvProvider].
func NewConfigProvider() *ConfigProviderImpl {
	return &ConfigProviderImpl{
		GenericConfigReader: &GodotenvProvider{},
		LookupEnv:           os.LookupEnv,
	}
}

// ReadGeneric reads filenames into a map. Without filenames the map is
// empty rather than read from a default ".env" file.
func (c *ConfigProviderImpl) ReadGeneric(filenames ...string) (envMap map[string]string, err error) {
	if len(filenames) == 0 {
		return map[string]string{}, nil
	}

	return c.GenericConfigReader.Read(filenames...)
}

// Overlay sets every key in keys that is present in the process
// environment, replacing file values.
func (c *ConfigProviderImpl) Overlay(envMap map[string]string, keys ...string) {
	lookup := c.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	for _, key := range keys {
		if value, ok := lookup(key); ok {
			envMap[key] = value
		}
	}
}

// MapKeyToString returns the value of key, or def when it is not set.
func (c *ConfigProviderImpl) MapKeyToString(envMap map[string]string, key string, def string) string {
	if value, exists := envMap[key]; exists && value != "" {
		return value
	}

	return def
}

// MapKeyToBool returns the value of key parsed as a boolean, or def when
// it is not set.
func (c *ConfigProviderImpl) MapKeyToBool(envMap map[string]string, key string, def bool) (bool, error) {
	value := c.MapKeyToString(envMap, key, "")
	if value == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return def, fmt.Errorf("(config) %w: %s=%q", ErrInvalidValue, key, value)
	}

	return b, nil
}

// MapKeyToSize returns the value of key parsed as a human-readable byte
// size, or def when it is not set.
func (c *ConfigProviderImpl) MapKeyToSize(envMap map[string]string, key string, def int64) (int64, error) {
	value := c.MapKeyToString(envMap, key, "")
	if value == "" {
		return def, nil
	}

	n, err := buffer.ParseSize(value)
	if err != nil {
		return def, fmt.Errorf("(config) %w: %s: %w", ErrInvalidValue, key, err)
	}

	return n, nil
}
