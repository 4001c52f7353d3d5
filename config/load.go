package config

import (
	"matchpool/core"

	"github.com/asaskevich/govalidator"
	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("MATCHPOOL")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaults(config)

	if _, err := govalidator.ValidateStruct(config); err != nil {
		return err
	}

	return nil
}

func defaults(config *core.Config) {
	if config.App.AccrualSpec == "" {
		config.App.AccrualSpec = "@every 1m"
	}
	if config.App.MatchBudget <= 0 {
		config.App.MatchBudget = 100
	}
	if config.App.MaxSortedUsers <= 0 {
		config.App.MaxSortedUsers = 50
	}
}
