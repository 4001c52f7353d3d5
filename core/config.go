package core

import (
	"github.com/fox-one/pkg/store/db"
)

// Config matchpool config
type Config struct {
	App      App         `json:"app"`
	DB       db.Config   `json:"db"`
	Pool     PoolCfg     `json:"pool"`
	Notifier NotifierCfg `json:"notifier"`
}

// App app config
type App struct {
	Location string `json:"location"`
	// accrual worker cadence, cron spec
	AccrualSpec string `json:"accrual_spec" valid:"required"`
	// default per-operation iteration budget when a market has none
	MatchBudget int64 `json:"match_budget"`
	// default insertion scan depth when a market has none
	MaxSortedUsers int64 `json:"max_sorted_users"`
}

// PoolCfg external pool endpoint config
type PoolCfg struct {
	Endpoint string `json:"endpoint"`
	// use the in-memory pool instead of the remote one, dev only
	Memory bool `json:"memory"`
}

// NotifierCfg position event webhook config, empty endpoint mutes delivery
type NotifierCfg struct {
	Endpoint string `json:"endpoint"`
}
