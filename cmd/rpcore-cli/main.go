// rpcore-cli is a command-line harness for the Remote Play protocol core.
//
// Usage:
//
//	rpcore-cli [options] <command> [args]
//
// Commands:
//
//	discover                     scan the LAN for consoles
//	probe <address>              check one console's power state
//	list                         list stored credential records
//	remove <address>             delete a console's credential record
//	wake <address>               send the wake datagram to a paired console
//	connect <address> <version>  establish a session and hold it until interrupted
//
// Options:
//
//	-dir      credential directory (default: ~/.remoteplay)
//	-duration discovery scan duration (default: 3s)
//	-v        verbose logging
//
// Example:
//
//	rpcore-cli -v connect 192.168.1.10 12
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pion/logging"

	"github.com/mauricio-gg/remoteplay-core/pkg/credential"
	"github.com/mauricio-gg/remoteplay-core/pkg/discovery"
	"github.com/mauricio-gg/remoteplay-core/pkg/errs"
	"github.com/mauricio-gg/remoteplay-core/pkg/keepalive"
	"github.com/mauricio-gg/remoteplay-core/pkg/session"
	"github.com/mauricio-gg/remoteplay-core/pkg/takion"
	"github.com/mauricio-gg/remoteplay-core/pkg/wake"
)

func main() {
	if err := run(); err != nil {
		if kind, ok := errs.As(err); ok {
			fmt.Fprintf(os.Stderr, "error (%s): %v\n  hint: %s\n", kind, err, kind.Hint())
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	dir := flag.String("dir", defaultCredentialDir(), "credential directory")
	duration := flag.Duration("duration", discovery.DefaultScanDuration, "discovery scan duration")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	factory := logging.NewDefaultLoggerFactory()
	if *verbose {
		factory.DefaultLogLevel = logging.LogLevelDebug
	} else {
		factory.DefaultLogLevel = logging.LogLevelWarn
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		return err
	}
	store, err := credential.NewStore(credential.StoreConfig{
		Dir:           *dir,
		LoggerFactory: factory,
	})
	if err != nil {
		return err
	}
	if err := store.LoadAll(); err != nil {
		return err
	}

	manager := discovery.NewManager(discovery.ManagerConfig{LoggerFactory: factory})

	switch flag.Arg(0) {
	case "discover":
		return cmdDiscover(manager, *duration)
	case "probe":
		return cmdProbe(manager, flag.Arg(1))
	case "list":
		return cmdList(store)
	case "remove":
		return cmdRemove(store, flag.Arg(1))
	case "wake":
		return cmdWake(store, flag.Arg(1))
	case "connect":
		return cmdConnect(store, manager, factory, flag.Arg(1), flag.Arg(2))
	case "":
		flag.Usage()
		return fmt.Errorf("missing command")
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", flag.Arg(0))
	}
}

func defaultCredentialDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".remoteplay"
	}
	return filepath.Join(home, ".remoteplay")
}

func cmdDiscover(manager *discovery.Manager, duration time.Duration) error {
	fmt.Printf("scanning for %s...\n", duration)
	consoles, err := manager.Scan(context.Background(), discovery.ScanOptions{
		Duration: duration,
		OnConsole: func(c *discovery.Console) {
			fmt.Printf("  found %s (%s) at %s\n", c.DeviceName, c.ConsoleType, c.Address)
		},
	})
	if err != nil {
		return err
	}
	if len(consoles) == 0 {
		fmt.Println("no consoles responded")
		return nil
	}
	for _, c := range consoles {
		state := "standby"
		if c.IsReady {
			state = "ready"
		}
		fmt.Printf("%-15s  %-12s  %-10s  %-7s  request-port %d\n",
			c.Address, c.DeviceName, c.ConsoleType, state, c.RequestPort)
	}
	return nil
}

func cmdProbe(manager *discovery.Manager, address string) error {
	if address == "" {
		return fmt.Errorf("usage: rpcore-cli probe <address>")
	}
	c, err := manager.ProbeOnce(context.Background(), address)
	if err != nil {
		return err
	}
	state := "standby"
	if c.IsReady {
		state = "ready"
	}
	fmt.Printf("%s is %s\n", address, state)
	return nil
}

func cmdList(store *credential.Store) error {
	records := store.All()
	if len(records) == 0 {
		fmt.Println("no credential records")
		return nil
	}
	for _, r := range records {
		status := "invalid"
		if r.Valid() {
			status = "valid"
		}
		fmt.Printf("%-15s  %-16s  key %s  %s\n", r.Address, r.DisplayName, r.RegistKeyHex8, status)
	}
	return nil
}

func cmdRemove(store *credential.Store, address string) error {
	if address == "" {
		return fmt.Errorf("usage: rpcore-cli remove <address>")
	}
	if err := store.Remove(address); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", address)
	return nil
}

func cmdWake(store *credential.Store, address string) error {
	if address == "" {
		return fmt.Errorf("usage: rpcore-cli wake <address>")
	}
	unified, err := store.GetUnified(address)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := wake.Send(ctx, address, wake.PortPS5, unified.Hex8)
	if err != nil {
		return err
	}
	fmt.Printf("wake: %s (confirm with a discovery scan)\n", result)
	return nil
}

func cmdConnect(store *credential.Store, manager *discovery.Manager, factory logging.LoggerFactory, address, version string) error {
	if address == "" || version == "" {
		return fmt.Errorf("usage: rpcore-cli connect <address> <version>")
	}
	var consoleVersion int
	if _, err := fmt.Sscanf(version, "%d", &consoleVersion); err != nil {
		return fmt.Errorf("version must be an integer: %w", err)
	}

	facade, err := session.New(session.Config{
		Store:         store,
		Discovery:     manager,
		Events:        printEvents{},
		LoggerFactory: factory,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := facade.Start(ctx, address, consoleVersion); err != nil {
		return err
	}

	fmt.Println("connected; press ctrl-c to disconnect")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if stats, ok := facade.TransportStats(); ok {
		fmt.Printf("transport: %d packets / %d bytes received\n", stats.PacketsReceived, stats.BytesReceived)
	}
	facade.Stop()
	fmt.Println("disconnected")
	return nil
}

// printEvents reports session events on stdout.
type printEvents struct{}

func (printEvents) OnData(kind takion.DataKind, payload []byte) {
	fmt.Printf("data: %s, %d bytes\n", kind, len(payload))
}

func (printEvents) OnState(state session.State) {
	fmt.Printf("session: %s\n", state)
}

func (printEvents) OnKeepalive(stats keepalive.Stats) {
	if stats.State == keepalive.StateFailed {
		fmt.Printf("keepalive: tripped after %d consecutive failures\n", stats.ConsecutiveFailures)
	}
}

func (printEvents) OnError(kind errs.Kind, message string) {
	fmt.Printf("error (%s): %s\n  hint: %s\n", kind, message, kind.Hint())
}
