package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytechute/chute/internal/relay"
	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	CONFIGS_DIR_NAME      = ".config"
	CHUTE_CONFIG_DIR_NAME = "chute"
	CONFIG_FILE_NAME      = "config"
	CONFIG_FILE_EXT       = "yml"
)

type Config struct {
	BindAddress    string        `mapstructure:"bind_address"`
	Port           int           `mapstructure:"port"`
	PairingTimeout time.Duration `mapstructure:"pairing_timeout"`
	BufferSize     int           `mapstructure:"buffer_size"`
	Verbose        bool          `mapstructure:"verbose"`
}

func GetDefault() Config {
	return Config{
		BindAddress:    relay.DefaultBindAddress,
		Port:           relay.DefaultPort,
		PairingTimeout: relay.DefaultPairingTimeout,
		BufferSize:     relay.DefaultBufferSize,
		Verbose:        false,
	}
}

func (config Config) Map() map[string]any {
	m := map[string]any{}
	for _, field := range structs.Fields(config) {
		key := field.Tag("mapstructure")
		value := field.Value()
		m[key] = value
	}
	return m
}

func (config Config) Yaml() []byte {
	var builder strings.Builder
	for k, v := range config.Map() {
		builder.WriteString(fmt.Sprintf("%s: %v", k, v))
		builder.WriteRune('\n')
	}
	return []byte(builder.String())
}

func IsDefault(key string) bool {
	defaults := GetDefault().Map()
	return viper.Get(key) == defaults[key]
}

// Init initializes the viper config.
// `config.yml` is created in $HOME/.config/chute if not already existing.
// NOTE: The precedence levels of viper are the following: flags -> config file -> defaults.
func Init() error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("resolving home dir: %w", err)
	}

	configPath := filepath.Join(home, CONFIGS_DIR_NAME, CHUTE_CONFIG_DIR_NAME)
	viper.AddConfigPath(configPath)
	viper.SetConfigName(CONFIG_FILE_NAME)
	viper.SetConfigType(CONFIG_FILE_EXT)

	if err := viper.ReadInConfig(); err != nil {
		// Create config file if not found.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			err := os.MkdirAll(configPath, os.ModePerm)
			if err != nil {
				return fmt.Errorf("could not create config directory: %w", err)
			}

			configFile, err := os.Create(filepath.Join(configPath, fmt.Sprintf("%s.%s", CONFIG_FILE_NAME, CONFIG_FILE_EXT)))
			if err != nil {
				return fmt.Errorf("could not create config file: %w", err)
			}
			defer configFile.Close()

			_, err = configFile.Write(GetDefault().Yaml())
			if err != nil {
				return fmt.Errorf("could not write defaults to config file: %w", err)
			}
		} else {
			return fmt.Errorf("could not read config file: %w", err)
		}
	}
	for k, v := range GetDefault().Map() {
		viper.SetDefault(k, v)
	}
	return nil
}
