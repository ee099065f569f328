// Package systemd reports service state to the systemd manager over
// NOTIFY_SOCKET. Outside a Type=notify unit every call is a no-op.
package systemd

import (
	"context"
	"time"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd start-up is complete. sent is false when no
// notification socket is configured.
func Ready() (sent bool, err error) {
	return sddaemon.SdNotify(false, sddaemon.SdNotifyReady)
}

// Stopping tells systemd the service is shutting down.
func Stopping() error {
	_, err := sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)
	return err
}

// WatchdogInterval returns the unit's WatchdogSec, or 0 when the watchdog is
// disabled for this process.
func WatchdogInterval() time.Duration {
	d, err := sddaemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}

// Watchdog pets the watchdog at half of interval until ctx is done.
func Watchdog(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = sddaemon.SdNotify(false, sddaemon.SdNotifyWatchdog)
		}
	}
}
