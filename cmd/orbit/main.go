package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/orbit/internal/app"
	"github.com/ayusman/orbit/internal/config"
	"github.com/ayusman/orbit/internal/log"
	"github.com/ayusman/orbit/internal/server"
	"github.com/ayusman/orbit/internal/store"
	"github.com/ayusman/orbit/internal/tracking"
	"github.com/ayusman/orbit/internal/tray"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		mode       = flag.String("mode", "", "initial tracking mode: raw, smoothed, kalman or 1-3")
		record     = flag.Bool("record", false, "record the session from startup")
		preview    = flag.Bool("preview", false, "show the camera preview window")
		useTray    = flag.Bool("tray", false, "show the system tray menu")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error")
		camera     = flag.Int("camera", 0, "camera device index")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orbit: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	modeFlag := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Server.Addr = *addr
		case "mode":
			cfg.Tracking.Mode = *mode
			modeFlag = true
		case "record":
			cfg.Store.Record = *record
		case "preview":
			cfg.UI.Preview = *preview
		case "tray":
			cfg.UI.Tray = *useTray
		case "log-level":
			cfg.LogLevel = *logLevel
		case "camera":
			cfg.Camera.Device = *camera
		}
	})

	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// An explicit -mode wins over the mode saved from the last run.
	var force tracking.Mode
	if modeFlag {
		force = cfg.Mode()
	}

	if err := run(cfg, force); err != nil {
		log.Error("orbit failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, force tracking.Mode) error {
	dbPath := cfg.StorePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	a, err := app.New(app.Config{Settings: cfg, Store: st, ForceMode: force})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		log.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{StaticDir: webDir, App: a, Store: st})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(ctx, cfg.Server.Addr)
	}()

	if cfg.UI.Tray {
		t := newTray(ctx, a, cancel, viewerURL(cfg.Server.Addr))
		go func() {
			wait(ctx, a, errc)
			cancel()
			t.Quit()
		}()
		t.Run()
		cancel()
	} else {
		wait(ctx, a, errc)
		cancel()
	}

	select {
	case err := <-errc:
		return err
	case <-time.After(6 * time.Second):
		return fmt.Errorf("server did not shut down")
	}
}

// wait blocks until ctx ends, the pipeline exits, or the server fails. A
// server error is put back for run to report.
func wait(ctx context.Context, a *app.App, errc chan error) {
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-a.Done():
		log.Info("pipeline exited")
	case err := <-errc:
		errc <- err
	}
}

// newTray wires the tray menu to the app and keeps it in sync with mode
// changes made over HTTP or from the preview window.
func newTray(ctx context.Context, a *app.App, quit context.CancelFunc, url string) *tray.Tray {
	t := tray.New(a.Mode())
	t.OnToggle(a.SetEnabled)
	t.OnMode(func(m tracking.Mode) { a.SetMode(m) })
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Warn("failed to open viewer", "url", url, "error", err)
		}
	})
	t.OnQuit(quit)

	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m := a.Mode(); m != t.Mode() {
					t.SetMode(m)
				}
				if p, ok := a.Poses().Latest(); ok {
					t.SetPose(p.RotX, p.RotY, p.Scale)
				}
			}
		}
	}()
	return t
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the viewer's static files in "web", "../web",
// "../../web" and ~/.orbit/web. It returns "" when none exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dir := config.ExpandHome("~/.orbit/web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
