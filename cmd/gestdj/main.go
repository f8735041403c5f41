package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/vasukaker/gestdj/internal/app"
	"github.com/vasukaker/gestdj/internal/config"
	"github.com/vasukaker/gestdj/internal/midi"
	"github.com/vasukaker/gestdj/internal/server"
	"github.com/vasukaker/gestdj/internal/store"
	"github.com/vasukaker/gestdj/internal/tray"
)

func main() {
	fmt.Println("GestDJ - Gesture MIDI Controller")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// The virtual MIDI port is the whole point of running; refuse to
	// start without it. Losing it later degrades to no-ops instead.
	port, err := midi.OpenPort(cfg.MIDI.DeviceName)
	if err != nil {
		log.Fatalf("Failed to open MIDI port %q: %v", cfg.MIDI.DeviceName, err)
	}
	defer port.Close()

	// Initialize the profile store
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	cfg = applyActiveProfile(cfg, st)
	a := app.New(cfg, port)

	receiver := midi.NewReceiver(port, a.Decks())
	if err := receiver.Start(); err != nil {
		log.Printf("MIDI feedback unavailable: %v", err)
	}

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			Store:         st,
			Camera:        a.Camera(),
			Decks:         a.Decks(),
			MIDIAvailable: port.Available,
		})
		go func() {
			log.Printf("Status server on http://%s", cfg.Server.Addr)
			if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
				log.Printf("Status server failed: %v", err)
			}
		}()
	}

	tr := tray.New()
	tr.OnToggle(a.SetEnabled)
	tr.OnStatus(func() {
		openBrowser("http://" + cfg.Server.Addr + "/api/status")
	})
	tr.OnQuit(func() {
		a.Stop()
	})
	tr.SetMIDIAvailable(port.Available())

	// The tray status line tracks port loss and recovery from here on.
	a.Scheduler().OnAvailability(tr.SetMIDIAvailable)

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	// Shut down cleanly on SIGINT/SIGTERM as well as tray quit. Stop
	// parks every control at its resting value before the port closes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		// os.Exit skips the deferred closes, so run them here.
		a.Stop()
		st.Close()
		port.Close()
		os.Exit(0)
	}()

	// Blocks until quit.
	tr.Run()
}

// applyActiveProfile overlays the selected tuning profile, if any, on
// the file/env configuration. It has to run before the pipeline is
// built: the classifier and the decks take their tunables at
// construction.
func applyActiveProfile(cfg config.Config, st *store.Store) config.Config {
	p, err := st.Profiles().Active()
	if err != nil {
		return cfg
	}
	log.Printf("Using tuning profile %q", p.Name)
	return cfg.MergeTunables(p.Tunables)
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
