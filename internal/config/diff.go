package config

import (
	"sort"
	"strings"

	logx "linotify/pkg/logx"
)

// SummarizeConfigChange returns (1) the sorted list of changed sections,
// (2) safe structured attrs for logging (never includes tokens, webhook URLs
// or DSNs), and (3) whether any changed section needs a process restart.
//
// Hot-applied sections: logging, daemon schedule/timezone/run_timeout.
// Everything else is read once at startup.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, bool) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	restart := false

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	od, nd := oldCfg.Daemon, newCfg.Daemon
	if strings.TrimSpace(od.Schedule) != strings.TrimSpace(nd.Schedule) ||
		strings.TrimSpace(od.Timezone) != strings.TrimSpace(nd.Timezone) ||
		strings.TrimSpace(od.RunTimeout) != strings.TrimSpace(nd.RunTimeout) {
		changed = append(changed, "daemon")
		attrs = append(attrs,
			logx.String("daemon.schedule", strings.TrimSpace(nd.Schedule)),
			logx.String("daemon.timezone", strings.TrimSpace(nd.Timezone)),
			logx.String("daemon.run_timeout", strings.TrimSpace(nd.RunTimeout)),
		)
	}
	if od.Listen != nd.Listen || od.RunOnStart != nd.RunOnStart {
		changed = append(changed, "daemon.listen")
		restart = true
		attrs = append(attrs, logx.String("daemon.listen", nd.Listen))
	}

	if oldCfg.Linode != newCfg.Linode || oldCfg.ProxyURL != newCfg.ProxyURL {
		changed = append(changed, "linode")
		restart = true
		attrs = append(attrs,
			logx.String("linode.base_url", newCfg.Linode.BaseURL),
			logx.Int("linode.page_size", newCfg.Linode.PageSize),
			logx.Bool("linode.token_set", strings.TrimSpace(newCfg.Linode.Token) != ""),
			logx.Bool("proxy_set", strings.TrimSpace(newCfg.ProxyURL) != ""),
		)
	}

	if oldCfg.Sink != newCfg.Sink {
		changed = append(changed, "sink")
		restart = true
		attrs = append(attrs,
			logx.String("sink.kind", newCfg.Sink.Kind),
			logx.Int("sink.slack.rate_per_sec", newCfg.Sink.Slack.RatePerSec),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		restart = true
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", newCfg.Storage.BusyTimeout),
		)
	}

	if oldCfg.Delivery != newCfg.Delivery {
		changed = append(changed, "delivery")
		restart = true
		attrs = append(attrs, logx.String("delivery.order", newCfg.Delivery.Order))
	}

	sort.Strings(changed)
	return changed, attrs, restart
}
