package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	JWT  JWTConfig  `mapstructure:"jwt"`
	Bank BankConfig `mapstructure:"bank"`
}

// JWTConfig carries the signing material and token lifetime. It is passed
// explicitly into the token codec constructor so tests can run with their
// own keys.
type JWTConfig struct {
	SecretKey string        `mapstructure:"secretKey"`
	Lifetime  time.Duration `mapstructure:"lifetime"`
	Issuer    string        `mapstructure:"issuer"`
}

// BankConfig holds banking domain knobs.
type BankConfig struct {
	// InitialBalance is credited to every new account at registration.
	InitialBalance float64 `mapstructure:"initialBalance"`
	// EnforceRegistryOnRequest controls whether every protected request
	// checks the session registry in addition to verifying the token
	// signature. Disabling it trades revocation-before-expiry for one
	// fewer query per request.
	EnforceRegistryOnRequest bool `mapstructure:"enforceRegistryOnRequest"`
	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `mapstructure:"bcryptCost"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Env overrides for secrets, e.g. KODBANK_JWT_SECRET_KEY.
	v.SetEnvPrefix("KODBANK")
	v.AutomaticEnv()
	_ = v.BindEnv("jwt.secretKey", "KODBANK_JWT_SECRET_KEY", "JWT_SECRET_KEY")
	_ = v.BindEnv("repositories.postgres.password", "KODBANK_POSTGRES_PASSWORD", "POSTGRES_PASSWORD")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	if config.JWT.Lifetime <= 0 {
		config.JWT.Lifetime = time.Hour
	}
	if config.Server.Timeout <= 0 {
		config.Server.Timeout = 60 * time.Second
	}
	if config.Bank.BcryptCost == 0 {
		config.Bank.BcryptCost = 10
	}

	return config, nil
}
