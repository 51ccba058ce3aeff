/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/config"
	"github.com/ssargent/nvrecord/pkg/device"
	"github.com/ssargent/nvrecord/pkg/di"
	"github.com/ssargent/nvrecord/pkg/dump"
	"github.com/ssargent/nvrecord/pkg/record"
)

// skipDevice marks commands that manage their own configuration and device
const skipDevice = "skip-device"

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

type sessionKey struct{}

// session is what PersistentPreRunE prepares for a command
type session struct {
	cfg       *config.Config
	dev       device.Device
	logger    *slog.Logger
	observers record.Observers
}

// active is closed by Execute whatever the command's outcome
var active *session

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nvrecord",
	Short: "nvrecord - crash-safe configuration record on non-volatile memory",
	Long: `nvrecord keeps one fixed-size configuration record on a byte-addressable
non-volatile device. Updates use a two-phase commit so that a power loss at
any point leaves either the old record, the new record, or a record that is
detectably invalid.

Devices can be an image file, a pebble database, simulated memory, or the
holding registers of a Modbus controller.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipDevice] == "true" {
			return nil
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		active = s
		cmd.SetContext(context.WithValue(cmd.Context(), sessionKey{}, s))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	closeSession()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default is $HOME/.config/nvrecord/config.yaml)")
	rootCmd.PersistentFlags().Bool("dump", false, "Log a hex dump of every record read")
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// newLogger builds the process logger. Every line carries the run id so
// interleaved runs against a shared device can be told apart.
func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run", ksuid.New().String()), nil
}

func openSession(cmd *cobra.Command) (*session, error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}

	path := configPath(cmd)
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'nvrecord init' first)", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	dev, err := container.GetDeviceFactory().OpenDevice(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("device opened", "kind", cfg.Device.Kind, "size", dev.Size(), "config", path)

	s := &session{cfg: cfg, dev: dev, logger: logger}
	dumpFlag, _ := cmd.Flags().GetBool("dump")
	if dumpFlag || cfg.Logging.Dump {
		s.observers = append(s.observers, dump.New(logger))
	}
	return s, nil
}

func closeSession() {
	if active == nil {
		return
	}
	if err := active.dev.Close(); err != nil {
		active.logger.Warn("closing device failed", "error", err)
	}
	active = nil
}

func sessionFrom(cmd *cobra.Command) (*session, error) {
	s, ok := cmd.Context().Value(sessionKey{}).(*session)
	if !ok {
		return nil, errors.New("device not found in context")
	}
	return s, nil
}

func (s *session) options(extra ...record.Observer) []record.Option {
	observers := append(record.Observers{}, s.observers...)
	observers = append(observers, extra...)
	return []record.Option{
		record.WithLogger(s.logger),
		record.WithObserver(observers),
	}
}

func (s *session) payloadCodec() record.BytesPayload {
	return record.BytesPayload{N: s.cfg.Record.PayloadSize}
}

// openManager binds the configured record without formatting it
func (s *session) openManager(ctx context.Context, extra ...record.Observer) (*record.Manager[[]byte], error) {
	return record.Open(ctx, s.dev, s.cfg.Record.Address, s.cfg.RecordConfig(), s.payloadCodec(), s.options(extra...)...)
}
