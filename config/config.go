package config

import (
	"github.com/spf13/viper"
	"sync"
	"time"
)

var once sync.Once

func InitConfig() {
	once.Do(func() {
		viper.AutomaticEnv()

		viper.BindEnv("telegram_bot_token", "API_TOKEN", "TELEGRAM_BOT_TOKEN")
		viper.BindEnv("port", "PORT")
		viper.BindEnv("cache_file", "CACHE_FILE")
		viper.BindEnv("db_path", "DB_PATH")
		viper.BindEnv("render_api_url", "RENDER_API_URL")
		viper.BindEnv("render_timeout", "RENDER_TIMEOUT")
		viper.BindEnv("render_insecure_fetch", "RENDER_INSECURE_FETCH")
		viper.BindEnv("sentry_dsn", "SENTRY_DSN")
		viper.BindEnv("debug", "DEBUG")
		viper.BindEnv("lang", "BOT_LANG")

		viper.SetDefault("port", 10000)
		viper.SetDefault("cache_file", "gif_cache.json")
		viper.SetDefault("db_path", "data/bot.db")
		viper.SetDefault("render_api_url", "https://cooltext.com")
		viper.SetDefault("render_timeout", 10*time.Second)
		// The render CDN presents a chain we cannot verify.
		viper.SetDefault("render_insecure_fetch", true)
		viper.SetDefault("debug", false)
		viper.SetDefault("lang", "en")
	})
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
