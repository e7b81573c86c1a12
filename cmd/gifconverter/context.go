package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/gatanasi/gif-converter/internal/client"
	"github.com/gatanasi/gif-converter/internal/config"
	"github.com/gatanasi/gif-converter/internal/constants"
	"github.com/gatanasi/gif-converter/internal/logging"
	"github.com/gatanasi/gif-converter/internal/models"
)

// serverEnv overrides the server URL used by client commands.
const serverEnv = "GIFCONVERTER_SERVER"

type commandContext struct {
	configFlag *string
	serverFlag *string

	config *models.Config
	logger *zap.Logger
}

func newCommandContext(configFlag, serverFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, serverFlag: serverFlag}
}

func (c *commandContext) ensureConfig() (models.Config, error) {
	if c.config != nil {
		return *c.config, nil
	}
	conf, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return models.Config{}, err
	}
	c.config = &conf
	return conf, nil
}

func (c *commandContext) ensureLogger() (*zap.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	conf, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(conf.LogLevel, conf.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	c.logger = logger
	return logger, nil
}

func (c *commandContext) serverURL() string {
	if flag := strings.TrimSpace(*c.serverFlag); flag != "" {
		return flag
	}
	if env := strings.TrimSpace(os.Getenv(serverEnv)); env != "" {
		return env
	}
	if c.config != nil && c.config.Port != "" {
		return "http://localhost:" + c.config.Port
	}
	return constants.DefaultServerURL
}

func (c *commandContext) apiClient() (*client.Client, error) {
	// Best effort: the port from the config file seeds the default URL.
	_, _ = c.ensureConfig()
	return client.New(c.serverURL(), nil)
}
