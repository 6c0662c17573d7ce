package configuration

import (
	"fmt"
	"os"
	"strconv"

	"video-autopilot/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	Scheduler   Scheduler   `json:"scheduler"`
	Quota       Quota       `json:"quota"`
	Refresher   Refresher   `json:"refresher"`
	Duplicate   Duplicate   `json:"duplicate"`
	Generator   Generator   `json:"generator"`
	Renderer    Renderer    `json:"renderer"`
	YouTube     YouTube     `json:"youtube"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port           int    `json:"port"`
	SecretKey      string `json:"secretKey"`
	OperatorSecret string `json:"operatorSecret"`
	TLSEnabled     bool   `json:"tlsEnabled"`
	TLSCertFile    string `json:"tlsCertFile"`
	TLSKeyFile     string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mssql Db `json:"mssql"`
	Mongo Db `json:"mongo"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace  string `json:"namespace"`
	AlertQueue string `json:"alertQueue"`
}

// Scheduler controls the per-channel workers.
type Scheduler struct {
	DefaultIntervalMinutes int `json:"defaultIntervalMinutes"`
	MinIntervalMinutes     int `json:"minIntervalMinutes"`
	MaxIntervalMinutes     int `json:"maxIntervalMinutes"`
	PollSeconds            int `json:"pollSeconds"`
	CycleTimeoutSeconds    int `json:"cycleTimeoutSeconds"`
	// PauseAfterFailures moves a channel to paused_errors after this many
	// consecutive abandoned cycles. 0 disables the policy (retry forever).
	PauseAfterFailures   int `json:"pauseAfterFailures"`
	StalePauseAlertHours int `json:"stalePauseAlertHours"`
}

// Quota controls the shared ledger and its monitor.
type Quota struct {
	MonitorIntervalMinutes int              `json:"monitorIntervalMinutes"`
	DefaultCeiling         int64            `json:"defaultCeiling"`
	Ceilings               map[string]int64 `json:"ceilings"`
}

// Refresher controls proactive credential renewal.
type Refresher struct {
	PollMinutes          int `json:"pollMinutes"`
	ProactiveWindowHours int `json:"proactiveWindowHours"`
	MaxAttempts          int `json:"maxAttempts"`
	BaseDelaySeconds     int `json:"baseDelaySeconds"`
}

// Duplicate controls the duplicate guard.
type Duplicate struct {
	HistorySize         int     `json:"historySize"`
	SimilarityThreshold float64 `json:"similarityThreshold"`
	MaxRegenerations    int     `json:"maxRegenerations"`
}

type Generator struct {
	Host           string `json:"host"`
	APIKey         string `json:"apiKey"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type Renderer struct {
	Host            string `json:"host"`
	TimeoutSeconds  int    `json:"timeoutSeconds"`
	PollIntervalSec int    `json:"pollIntervalSec"`
}

type YouTube struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment (Azure SQL in production)
	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}
}

func initApp(C *Config) {
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("OPERATOR_SECRET"); v != "" {
		C.App.OperatorSecret = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10010
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10010
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; ops API authentication will fail. Provide SECRET_KEY via environment.")
	}
}

// initDefaults fills scheduling and lifecycle defaults when the config file
// leaves them unset.
func initDefaults(C *Config) {
	if C.Scheduler.DefaultIntervalMinutes == 0 {
		C.Scheduler.DefaultIntervalMinutes = 360 // 4 posts/day
	}
	if C.Scheduler.MinIntervalMinutes == 0 {
		C.Scheduler.MinIntervalMinutes = 60
	}
	if C.Scheduler.MaxIntervalMinutes == 0 {
		C.Scheduler.MaxIntervalMinutes = 2880
	}
	if C.Scheduler.PollSeconds == 0 {
		C.Scheduler.PollSeconds = 60
	}
	if C.Scheduler.CycleTimeoutSeconds == 0 {
		C.Scheduler.CycleTimeoutSeconds = 600
	}
	if C.Quota.MonitorIntervalMinutes == 0 {
		C.Quota.MonitorIntervalMinutes = 60
	}
	if C.Quota.DefaultCeiling == 0 {
		C.Quota.DefaultCeiling = 10000
	}
	if C.Refresher.PollMinutes == 0 {
		C.Refresher.PollMinutes = 30
	}
	if C.Refresher.ProactiveWindowHours == 0 {
		C.Refresher.ProactiveWindowHours = 2
	}
	if C.Refresher.MaxAttempts == 0 {
		C.Refresher.MaxAttempts = 5
	}
	if C.Refresher.BaseDelaySeconds == 0 {
		C.Refresher.BaseDelaySeconds = 2
	}
	if C.Duplicate.HistorySize == 0 {
		C.Duplicate.HistorySize = 50
	}
	if C.Duplicate.SimilarityThreshold == 0 {
		C.Duplicate.SimilarityThreshold = 0.85
	}
	if C.Duplicate.MaxRegenerations == 0 {
		C.Duplicate.MaxRegenerations = 3
	}
	if C.Generator.TimeoutSeconds == 0 {
		C.Generator.TimeoutSeconds = 60
	}
	if C.Renderer.TimeoutSeconds == 0 {
		C.Renderer.TimeoutSeconds = 300
	}
	if C.Renderer.PollIntervalSec == 0 {
		C.Renderer.PollIntervalSec = 5
	}
	if C.Pubsub.Topic == "" {
		C.Pubsub.Topic = "cycle-events"
	}
	if C.ServiceBus.AlertQueue == "" {
		C.ServiceBus.AlertQueue = "fleet-alerts"
	}
}
