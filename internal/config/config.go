package config

import (
	"encoding/json"
	"os"
)

type Config struct {
	Bot     BotConfig     `json:"bot"`
	Defense DefenseConfig `json:"defense"`
	Storage StorageConfig `json:"storage"`
	Mail    MailConfig    `json:"mail"`
	Network NetworkConfig `json:"network"`
}

type BotConfig struct {
	Token        string `json:"token"`
	OwnerID      string `json:"owner_id"`
	LogChannelID string `json:"log_channel_id"`
}

type DefenseConfig struct {
	Enabled              bool   `json:"enabled"`
	ProtectedHandle      string `json:"protected_handle"`
	RestoreDelaySeconds  int    `json:"restore_delay_seconds"`
	SweepIntervalSeconds int    `json:"sweep_interval_seconds"`
	RateLimiting         bool   `json:"rate_limiting"`
	BehaviorAnalysis     bool   `json:"behavior_analysis"`
	PatternDetection     bool   `json:"pattern_detection"`
	AutoBan              bool   `json:"auto_ban"`
}

type StorageConfig struct {
	DatabasePath string `json:"database_path"`
	BackupDir    string `json:"backup_dir"`
	LogPath      string `json:"log_path"`
}

type MailConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type NetworkConfig struct {
	WorkerCount int    `json:"worker_count"`
	APIBaseURL  string `json:"api_base_url"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		GlobalConfig = cfg
	}
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		cfg.Bot.Token = token
	}
	if ownerID := os.Getenv("OWNER_ID"); ownerID != "" {
		cfg.Bot.OwnerID = ownerID
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if mailPass := os.Getenv("MAIL_PASSWORD"); mailPass != "" {
		cfg.Mail.Password = mailPass
	}
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{},
		Defense: DefenseConfig{
			Enabled:              true,
			ProtectedHandle:      "by_bytes",
			RestoreDelaySeconds:  60,
			SweepIntervalSeconds: 30,
			RateLimiting:         true,
			BehaviorAnalysis:     true,
			PatternDetection:     true,
			AutoBan:              true,
		},
		Storage: StorageConfig{
			DatabasePath: "guardian.db",
			BackupDir:    "backups",
			LogPath:      "guardian.log",
		},
		Mail: MailConfig{
			Port: 587,
		},
		Network: NetworkConfig{
			WorkerCount: 4,
			APIBaseURL:  "https://discord.com/api/v10",
		},
	}
}

func Get() *Config {
	if GlobalConfig == nil {
		return DefaultConfig()
	}
	return GlobalConfig
}
