package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"loan-engine/internal/domain/loan"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string

	// DBDriver is "mysql" or "sqlite".
	DBDriver   string
	SQLitePath string

	MySQLHost string
	MySQLPort string
	MySQLDB   string
	MySQLUser string
	MySQLPass string

	RedisAddr string
	RedisPass string
	RedisDB   int

	IdempTTLSecs int

	LogLevel  string
	LogPretty bool

	OwnerAddress   string
	EngineAddress  string
	FeeSinkAddress string

	// ChainRPCURL, when set, makes the engine follow a real chain head.
	// Otherwise heights are derived from ChainGenesis and BlockInterval.
	ChainRPCURL   string
	ChainGenesis  time.Time
	BlockInterval time.Duration

	MinCollateralRatio      uint64
	ForeclosureFloorRatio   uint64
	ForeclosureWindowBlocks uint64
	FeePercentage           uint64
	AgentRewardPercentage   uint64
	MaxOracleAgeBlocks      uint64
}

func setDefaults(v *viper.Viper) {
	d := loan.DefaultParams()
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("SQLITE_PATH", "loan-engine.db")
	v.SetDefault("MYSQL_HOST", "mysql")
	v.SetDefault("MYSQL_PORT", "3306")
	v.SetDefault("MYSQL_DB", "loans")
	v.SetDefault("MYSQL_USER", "loans")
	v.SetDefault("MYSQL_PASS", "loans")
	v.SetDefault("REDIS_ADDR", "redis:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL_SECONDS", 300)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("ENGINE_ADDRESS", "0x000000000000000000000000000000000000e9e1")
	v.SetDefault("FEE_SINK_ADDRESS", "0x000000000000000000000000000000000000fee5")
	v.SetDefault("CHAIN_GENESIS", "2024-01-01T00:00:00Z")
	v.SetDefault("BLOCK_INTERVAL", "12s")
	v.SetDefault("MIN_COLLATERAL_RATIO", d.MinCollateralRatio)
	v.SetDefault("FORECLOSURE_FLOOR_RATIO", d.ForeclosureFloorRatio)
	v.SetDefault("FORECLOSURE_WINDOW_BLOCKS", d.ForeclosureWindowBlocks)
	v.SetDefault("FEE_PERCENTAGE", d.FeePercentage)
	v.SetDefault("AGENT_REWARD_PERCENTAGE", d.AgentRewardPercentage)
	v.SetDefault("MAX_ORACLE_AGE_BLOCKS", d.MaxOracleAgeBlocks)
}

// Load reads the environment, overlaid on an optional .env file in the
// working directory.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}
	v.AutomaticEnv()

	genesis, err := time.Parse(time.RFC3339, v.GetString("CHAIN_GENESIS"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAIN_GENESIS: %w", err)
	}

	return &Config{
		AppPort:    v.GetString("APP_PORT"),
		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		SQLitePath: v.GetString("SQLITE_PATH"),
		MySQLHost:  v.GetString("MYSQL_HOST"),
		MySQLPort:  v.GetString("MYSQL_PORT"),
		MySQLDB:    v.GetString("MYSQL_DB"),
		MySQLUser:  v.GetString("MYSQL_USER"),
		MySQLPass:  v.GetString("MYSQL_PASS"),

		RedisAddr:    v.GetString("REDIS_ADDR"),
		RedisPass:    v.GetString("REDIS_PASSWORD"),
		RedisDB:      v.GetInt("REDIS_DB"),
		IdempTTLSecs: v.GetInt("IDEMPOTENCY_TTL_SECONDS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogPretty: v.GetBool("LOG_PRETTY"),

		OwnerAddress:   v.GetString("OWNER_ADDRESS"),
		EngineAddress:  v.GetString("ENGINE_ADDRESS"),
		FeeSinkAddress: v.GetString("FEE_SINK_ADDRESS"),

		ChainRPCURL:   v.GetString("CHAIN_RPC_URL"),
		ChainGenesis:  genesis,
		BlockInterval: v.GetDuration("BLOCK_INTERVAL"),

		MinCollateralRatio:      v.GetUint64("MIN_COLLATERAL_RATIO"),
		ForeclosureFloorRatio:   v.GetUint64("FORECLOSURE_FLOOR_RATIO"),
		ForeclosureWindowBlocks: v.GetUint64("FORECLOSURE_WINDOW_BLOCKS"),
		FeePercentage:           v.GetUint64("FEE_PERCENTAGE"),
		AgentRewardPercentage:   v.GetUint64("AGENT_REWARD_PERCENTAGE"),
		MaxOracleAgeBlocks:      v.GetUint64("MAX_ORACLE_AGE_BLOCKS"),
	}, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		// ensure port is valid
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("missing SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}

	addrs := map[string]string{
		"OWNER_ADDRESS":    c.OwnerAddress,
		"ENGINE_ADDRESS":   c.EngineAddress,
		"FEE_SINK_ADDRESS": c.FeeSinkAddress,
	}
	for key, raw := range addrs {
		if !common.IsHexAddress(raw) || common.HexToAddress(raw) == (common.Address{}) {
			return fmt.Errorf("invalid %s %q", key, raw)
		}
	}
	if c.Engine() == c.FeeSink() {
		return errors.New("ENGINE_ADDRESS and FEE_SINK_ADDRESS must differ")
	}

	if c.ChainRPCURL == "" && c.BlockInterval <= 0 {
		return fmt.Errorf("invalid BLOCK_INTERVAL %s", c.BlockInterval)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("default params (floor %d, min %d, window %d): %w",
			c.ForeclosureFloorRatio, c.MinCollateralRatio, c.ForeclosureWindowBlocks, err)
	}
	return nil
}

func (c *Config) Owner() common.Address   { return common.HexToAddress(c.OwnerAddress) }
func (c *Config) Engine() common.Address  { return common.HexToAddress(c.EngineAddress) }
func (c *Config) FeeSink() common.Address { return common.HexToAddress(c.FeeSinkAddress) }

// Params are the engine parameters used until an admin stores its own.
func (c *Config) Params() loan.GeneralParams {
	return loan.GeneralParams{
		ID:                      1,
		MinCollateralRatio:      c.MinCollateralRatio,
		ForeclosureFloorRatio:   c.ForeclosureFloorRatio,
		ForeclosureWindowBlocks: c.ForeclosureWindowBlocks,
		FeePercentage:           c.FeePercentage,
		AgentRewardPercentage:   c.AgentRewardPercentage,
		MaxOracleAgeBlocks:      c.MaxOracleAgeBlocks,
	}
}

func (c *Config) IdempotencyTTL() time.Duration { return time.Duration(c.IdempTTLSecs) * time.Second }

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// multiStatements=true is handy for migrations; parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}
