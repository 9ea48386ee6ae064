// Command blockpress is a terminal client for a BlockPress deployment. It
// wires the session manager, content store and composer into a bubbletea
// program; all rendering decisions come from the view projection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	blockpress "github.com/gems-gallery/blockpress.go"
	"github.com/gems-gallery/blockpress.go/internal/config"
	"github.com/gems-gallery/blockpress.go/pkg/auth"
	"github.com/gems-gallery/blockpress.go/pkg/compose"
	"github.com/gems-gallery/blockpress.go/pkg/content"
	"github.com/gems-gallery/blockpress.go/pkg/logger"
	"github.com/gems-gallery/blockpress.go/pkg/logger/zero"
	"github.com/gems-gallery/blockpress.go/pkg/session"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "blockpress:", err)
		os.Exit(1)
	}
}

func run() error {
	var flags config.Flags
	fs := pflag.NewFlagSet("blockpress", pflag.ContinueOnError)
	flags.Bind(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	flags.Apply(conf)
	conf.ApplyDefaults()
	if err := conf.Validate(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(conf.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	u, err := url.Parse(conf.ServiceURL)
	if err != nil {
		return fmt.Errorf("service url: %w", err)
	}

	caps := conf.ResolveCapabilities()
	factory, err := blockpress.NewFactory(blockpress.Config{
		URL:          u,
		Deployment:   conf.DeploymentMode(),
		Capabilities: &caps,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	provider := auth.NewStoredClient(conf.DelegationPath, tokenFileFlow(flags.TokenFile))
	if err := provider.Load(); err != nil {
		// A corrupt delegation file degrades to anonymous.
		log.Warn("restoring delegation failed", "error", err)
	}

	manager := session.NewManager(provider, factory, conf.ProviderURL, log)
	store := content.NewStore(log)
	gate := session.NewGate(log)
	editor := newTextEditor()
	composer := compose.New(editor, store, log)

	a := newApp(manager, gate, store, composer, editor, log)
	p := tea.NewProgram(a, tea.WithAltScreen())

	// Every identity transition supersedes in-flight fetches before the UI
	// hears about it, so a response issued under the previous identity can
	// never land on the new one's screen.
	manager.SetOnTransition(func(st session.State, _ *blockpress.Client) {
		store.Invalidate()
		p.Send(transitionMsg{state: st})
	})

	_, err = p.Run()
	return err
}

// newLogger builds the file logger. The TUI owns the terminal, so without a
// log file everything is discarded.
func newLogger(path string) (logger.Logger, func(), error) {
	if path == "" {
		return zero.New(zerolog.New(io.Discard)), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	l := zerolog.New(f).With().Timestamp().Logger()
	return zero.New(l), func() { _ = f.Close() }, nil
}

// tokenFileFlow is the terminal stand-in for the interactive delegation flow:
// the user completes consent with the provider out of band and points the
// client at the resulting token.
func tokenFileFlow(path string) auth.LoginFlow {
	return func(ctx context.Context, opts auth.LoginOptions) (string, error) {
		if path == "" {
			return "", fmt.Errorf("no delegation token; complete the flow at %s and pass --token-file", opts.ProviderURL)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
}
