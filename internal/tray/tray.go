//go:build tray

package tray

import (
	"context"
	"log/slog"
	"time"

	"github.com/getlantern/systray"
	"github.com/loykin/videospace/internal/logger"
)

// Available reports whether this build has a system tray.
func Available() bool { return true }

// Run shows the tray menu and blocks until Quit is clicked or ctx is done.
// It must be called from the main goroutine.
func Run(ctx context.Context, ctl Controller, opts Options, log *slog.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	a := actions{ctl: ctl, opts: opts.withDefaults(), log: log.With("component", "tray")}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	systray.Run(func() { onReady(ctx, a) }, cancel)
	return nil
}

func onReady(ctx context.Context, a actions) {
	systray.SetTemplateIcon(icon, icon)
	systray.SetTitle("")
	systray.SetTooltip(a.opts.Tooltip)

	mStatus := systray.AddMenuItem("Server: Stopped", "Server status")
	mStatus.Disable()
	systray.AddSeparator()
	mStart := systray.AddMenuItem("Start Server", "Start the video server")
	mStop := systray.AddMenuItem("Stop Server", "Stop the video server")
	mOpen := systray.AddMenuItem("Open UI", "Open the UI in the browser")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit Video Space")

	apply := func() {
		st := a.state()
		mStatus.SetTitle(st.Status)
		systray.SetTooltip(st.Tooltip)
		if st.StartEnabled {
			mStart.Enable()
		} else {
			mStart.Disable()
		}
		if st.StopEnabled {
			mStop.Enable()
		} else {
			mStop.Disable()
		}
	}
	apply()

	go func() {
		ticker := time.NewTicker(a.opts.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-mStart.ClickedCh:
				a.start(ctx)
				apply()
			case <-mStop.ClickedCh:
				a.stop(ctx)
				apply()
			case <-mOpen.ClickedCh:
				a.openUI(ctx)
			case <-ticker.C:
				apply()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			case <-ctx.Done():
				systray.Quit()
				return
			}
		}
	}()
}
