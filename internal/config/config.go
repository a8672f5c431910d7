package config

import (
	"errors"
	"fmt"
	"strings"

	"traitor-be/internal/service/game"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// 状态机 tick 频率与快照广播频率，单位 Hz
	TickHz     int `mapstructure:"tick_hz"`
	SnapshotHz int `mapstructure:"snapshot_hz"`

	MinPlayers           int      `mapstructure:"min_players"`
	PreRoundTime         float64  `mapstructure:"pre_round_time"`
	PostRoundTime        float64  `mapstructure:"post_round_time"`
	RestartPostRoundTime float64  `mapstructure:"restart_post_round_time"`
	MaxHealth            int      `mapstructure:"max_health"`
	DecayInterval        float64  `mapstructure:"decay_interval"`
	BodyParts            []string `mapstructure:"body_parts"`

	CatalogPath string `mapstructure:"catalog_path"`
	// 为空时不记录对局历史
	DBPath     string `mapstructure:"db_path"`
	AdminToken string `mapstructure:"admin_token"`
	// 0 表示使用随机种子
	Seed uint64 `mapstructure:"seed"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

// InitConfig 加载工作目录下的 app_config.json，失败时直接 panic
func InitConfig() *AppConfig {
	config, err := LoadConfig("app_config.json")
	if err != nil {
		panic(err)
	}

	return config
}

func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix("TRAITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := game.DefaultSettings()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("tick_hz", 30)
	v.SetDefault("snapshot_hz", 10)
	v.SetDefault("min_players", d.MinPlayers)
	v.SetDefault("pre_round_time", d.PreRoundTime)
	v.SetDefault("post_round_time", d.PostRoundTime)
	v.SetDefault("restart_post_round_time", d.RestartPostRoundTime)
	v.SetDefault("max_health", d.MaxHealth)
	v.SetDefault("decay_interval", d.DecayInterval)
	v.SetDefault("body_parts", d.BodyParts)
	v.SetDefault("catalog_path", "data/catalog.yaml")
	v.SetDefault("db_path", "data/history.db")
	v.SetDefault("admin_token", "")
	v.SetDefault("seed", 0)
}

func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("端口超出范围: %d", c.Port)
	}
	if c.TickHz <= 0 {
		return errors.New("tick_hz 必须为正数")
	}
	if c.SnapshotHz <= 0 || c.SnapshotHz > c.TickHz {
		return fmt.Errorf("snapshot_hz 必须在 1 到 tick_hz(%d) 之间", c.TickHz)
	}

	return nil
}

// SnapshotEvery 返回每隔多少个 tick 广播一次快照
func (c *AppConfig) SnapshotEvery() int {
	return max(1, c.TickHz/c.SnapshotHz)
}

// GameSettings 转换为回合状态机使用的参数，其余校验由 GameContext.Validate 完成
func (c *AppConfig) GameSettings() game.Settings {
	return game.Settings{
		MinPlayers:           c.MinPlayers,
		PreRoundTime:         c.PreRoundTime,
		PostRoundTime:        c.PostRoundTime,
		RestartPostRoundTime: c.RestartPostRoundTime,
		MaxHealth:            c.MaxHealth,
		DecayInterval:        c.DecayInterval,
		BodyParts:            append([]string(nil), c.BodyParts...),
	}
}
