package bootstrap

import (
	"github.com/jonesrussell/north-cloud/list-pages/internal/config"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// LoadConfig loads the configuration from CONFIG_PATH or config.yml.
func LoadConfig() (*config.Config, error) {
	return config.Load(config.GetConfigPath("config.yml"))
}

// CreateLogger creates the service logger.
func CreateLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, err
	}
	return log.With(
		logger.String("service", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
	), nil
}
