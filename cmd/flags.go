package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps config keys to the flags that override them. Subcommands
// reuse flag names (--delay), so binding happens against the command being
// executed rather than at construction.
var flagKeys = map[string]string{
	"server.addr":             "metrics-addr",
	"monitor.mode":            "mode",
	"monitor.update_interval": "interval",
	"monitor.quiet":           "quiet",
	"monitor.log_progress":    "log-progress",
	"logging.level":           "log-level",
	"workload.workers":        "workers",
	"workload.tasks":          "tasks",
	"workload.delay":          "delay",
	"workload.outer":          "outer",
	"workload.inner":          "inner",
}

// bindFlags binds each config key to its flag when lookup finds it. Unset
// flags fall through to the config file, the environment and the defaults.
func bindFlags(v *viper.Viper, lookup func(string) *pflag.Flag) {
	for key, name := range flagKeys {
		if f := lookup(name); f != nil {
			// BindPFlag only fails on a nil flag.
			_ = v.BindPFlag(key, f)
		}
	}
}
