package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvInfo service name and paths from .env
type EnvInfo struct {
	ChatService         string
	ChatServiceYAMLPath string
	ChatServiceLogPath  string
}

// EnvConfig service setting from .env
var (
	EnvConfig = initEnv()
	envConfig EnvInfo
	once      sync.Once
	env       string
)

func initEnv() EnvInfo {
	once.Do(func() {
		path, err := GetPath(".env", 5)
		if err != nil {
			log.Printf("Warning: Could not get .env path: %v", err)
		} else if err := godotenv.Load(path); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		env = os.Getenv("ENV")

		envConfig = EnvInfo{
			ChatService:         getenvDefault("CHAT_SERVICE", "chat_service"),
			ChatServiceYAMLPath: getenvDefault("CHAT_SERVICE_YAML", "./config"),
			ChatServiceLogPath:  getenvDefault("CHAT_SERVICE_LOG", "./logs"),
		}
	})

	return envConfig
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// IsProduction check run env
func IsProduction() bool {
	return env == "production"
}

// IsLocal check run env
func IsLocal() bool {
	return env == "local"
}

// ReadConfig reads <serviceName>.yaml from configPath, expands ${VAR} placeholders from the
// environment and unmarshals it into T. defaults are applied first.
func ReadConfig[T any](serviceName, configPath string, defaults map[string]interface{}) (T, error) {
	var cfg T

	v := viper.New()
	v.SetConfigName(serviceName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("load config file: %w", err)
	}

	rawConfig, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return cfg, fmt.Errorf("read raw config file: %w", err)
	}

	expandedConfig := os.ExpandEnv(string(rawConfig))
	if err := v.ReadConfig(bytes.NewBufferString(expandedConfig)); err != nil {
		return cfg, fmt.Errorf("read expanded config: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadConfig is ReadConfig that exits the process on failure.
func LoadConfig[T any](serviceName string, configPath string, defaults map[string]interface{}) T {
	cfg, err := ReadConfig[T](serviceName, configPath, defaults)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// LoadChat loads the chat service config with its defaults.
func LoadChat() Chat {
	return LoadConfig[Chat](EnvConfig.ChatService, EnvConfig.ChatServiceYAMLPath, chatDefaults)
}

// ReadChat is LoadChat returning the error instead of exiting.
func ReadChat(serviceName, configPath string) (Chat, error) {
	return ReadConfig[Chat](serviceName, configPath, chatDefaults)
}

// GetPath use fileName loop maxCount find file path
func GetPath(fileName string, maxCount int) (string, error) {
	path := "./" + fileName

	for i := 0; i < maxCount; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = "../" + path
	}
	return "", errors.New(fileName + " can't find path")
}
