package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      API
	Database Database
	Server   Server
	Registry Registry
}

type API struct {
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Database struct {
	Type      string `mapstructure:"type"`
	Firestore Firestore
	SQLite    SQLite
	File      File
}

type Firestore struct {
	ProjectID                string `mapstructure:"project_id"`
	CredentialsFile          string `mapstructure:"credentials_file"`
	RegistrationCollectionID string `mapstructure:"registration_collection_id"`
}

type SQLite struct {
	ConnectionString string `mapstructure:"connection_string"`
}

type File struct {
	Path string `mapstructure:"path"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Registry struct {
	PageSize int `mapstructure:"page_size"`
}

func ReadConfig() (Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("api.timeout", "30s")
	viper.SetDefault("database.type", "file")
	viper.SetDefault("database.file.path", "registrations.json")
	viper.SetDefault("database.sqlite.connection_string", "studyshelf.db")
	viper.SetDefault("database.firestore.registration_collection_id", "registrations")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("registry.page_size", 200)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, continuing with env and defaults")
		} else {
			// Config file was found but another error was produced
			return Config{}, fmt.Errorf("failed to read config file: %s", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	return config, nil
}
