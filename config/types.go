package config

type AppConfig struct {
	DataDir      string        `yaml:"data_dir" env:"IMS_DATA_DIR" env-default:"data/events"`
	StoreBackend string        `yaml:"store_backend" env:"IMS_STORE_BACKEND" env-default:"file"`
	DBPath       string        `yaml:"db_path" env:"IMS_DB_PATH" env-default:"data/ims.db"`
	LogLevel     string        `yaml:"log_level" env:"IMS_LOG_LEVEL" env-default:"info"`
	Backups      BackupsConfig `yaml:"backups"`
}

type BackupsConfig struct {
	Enabled              bool   `yaml:"enabled" env:"IMS_BACKUP_ENABLED" env-default:"false"`
	Path                 string `yaml:"path" env:"IMS_BACKUP_PATH" env-default:"data/backups"`
	Schedule             string `yaml:"schedule" env:"IMS_BACKUP_SCHEDULE" env-default:"0 3 * * *"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds" env:"IMS_BACKUP_CHECK_INTERVAL" env-default:"60"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

func (c *AppConfig) EffectiveBackend() string {
	if c == nil || c.StoreBackend == "" {
		return BackendFile
	}
	return c.StoreBackend
}
