package tray

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/loykin/videospace/internal/logger"
)

type fakeController struct {
	running bool
	opened  []string
	failAll bool
}

func (f *fakeController) StartServer(context.Context) (string, error) {
	if f.failAll {
		return "", errors.New("spawn failed")
	}
	f.running = true
	return "server started", nil
}

func (f *fakeController) StopServer(context.Context) (string, error) {
	if f.failAll {
		return "", errors.New("terminate failed")
	}
	f.running = false
	return "server stopped", nil
}

func (f *fakeController) ServerStatus() bool { return f.running }

func (f *fakeController) OpenInBrowser(_ context.Context, u string) error {
	if f.failAll {
		return errors.New("no browser")
	}
	f.opened = append(f.opened, u)
	return nil
}

func TestStateFor(t *testing.T) {
	run := stateFor(true, "Video Space")
	if run.Status != "Server: Running" || !run.StopEnabled || run.StartEnabled || run.Tooltip != "Video Space - Running" {
		t.Fatalf("running state: %+v", run)
	}
	stop := stateFor(false, "VS")
	if stop.Status != "Server: Stopped" || stop.StopEnabled || !stop.StartEnabled || stop.Tooltip != "VS - Stopped" {
		t.Fatalf("stopped state: %+v", stop)
	}
}

func TestActions(t *testing.T) {
	ctl := &fakeController{}
	a := actions{ctl: ctl, opts: Options{UIURL: "http://localhost:3000"}.withDefaults(), log: logger.Discard()}
	ctx := context.Background()

	a.start(ctx)
	if !a.state().StopEnabled {
		t.Fatal("expected stop enabled after start")
	}
	a.openUI(ctx)
	if len(ctl.opened) != 1 || ctl.opened[0] != "http://localhost:3000" {
		t.Fatalf("opened: %v", ctl.opened)
	}
	a.stop(ctx)
	if !a.state().StartEnabled {
		t.Fatal("expected start enabled after stop")
	}
}

func TestActionsLogFailures(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := logger.New(logger.Options{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	a := actions{ctl: &fakeController{failAll: true}, opts: Options{UIURL: "http://x"}.withDefaults(), log: log}
	a.start(context.Background())
	a.stop(context.Background())
	a.openUI(context.Background())
	for _, want := range []string{"tray start failed", "tray stop failed", "tray open UI failed"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("missing %q in %s", want, buf.String())
		}
	}
}

func TestOpenUIWithoutURL(t *testing.T) {
	ctl := &fakeController{}
	a := actions{ctl: ctl, opts: Options{}.withDefaults(), log: logger.Discard()}
	a.openUI(context.Background())
	if len(ctl.opened) != 0 {
		t.Fatal("nothing should open without a url")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Tooltip != "Video Space" || o.PollInterval <= 0 {
		t.Fatalf("defaults: %+v", o)
	}
}

func TestIconEmbedded(t *testing.T) {
	if len(icon) < 8 || !bytes.Equal(icon[:8], []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("tray icon is not a png")
	}
}
