package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	// 游戏服务器地址（host:port），WebSocket 和大厅接口共用
	ServerAddr string `mapstructure:"server_addr"`
	LogLevel   string `mapstructure:"log_level"`
	// 默认玩家名，留空时启动后再询问
	PlayerName string `mapstructure:"player_name"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("server_addr", "localhost:3001")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}
