package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/nvrecord/pkg/api"
	"github.com/ssargent/nvrecord/pkg/codec"
	"github.com/ssargent/nvrecord/pkg/config"
	"github.com/ssargent/nvrecord/pkg/di"
	"github.com/ssargent/nvrecord/pkg/record"
)

const testRecordAddr = 16

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	closeSession()
	return stdout.String(), stderr.String(), err
}

func setupConfig(t *testing.T) (string, string) {
	t.Helper()
	SetContainer(di.NewContainer(nil))

	dir := t.TempDir()
	devicePath := filepath.Join(dir, "eeprom.img")
	configPath := filepath.Join(dir, "config.yaml")

	cfg := config.DefaultConfig()
	cfg.Device.Path = devicePath
	cfg.Device.Size = 256
	cfg.Record = config.Record{
		Address:       testRecordAddr,
		Magic:         0xDEADBEEF,
		Version:       1,
		PayloadSize:   8,
		ChecksumWidth: 16,
	}
	require.NoError(t, config.SaveConfig(cfg, configPath))

	return configPath, devicePath
}

func TestRecordCommands(t *testing.T) {
	configPath, _ := setupConfig(t)
	run := func(args ...string) (string, error) {
		out, _, err := runCommand(t, append(args, "--config", configPath)...)
		return out, err
	}

	out, err := run("init")
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing configuration")
	assert.Contains(t, out, "Record at address 16 is formatted")

	out, err = run("show", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000\n", out)

	out, err = run("save", "--hex", "de ad")
	require.NoError(t, err)
	assert.Equal(t, "Saved 2 bytes\n", out)

	out, err = run("show", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "dead000000000000\n", out)

	out, err = run("show")
	require.NoError(t, err)
	assert.Equal(t, "@0015: DE AD 00\n@0018: 00 00 00 00 00\n", out)

	t.Run("lock cycle", func(t *testing.T) {
		out, err := run("lock")
		require.NoError(t, err)
		assert.Equal(t, "Record locked\n", out)

		_, err = run("show")
		assert.ErrorIs(t, err, record.ErrNoData)

		_, err = run("save", "--hex", "01")
		assert.ErrorIs(t, err, record.ErrPrecondition)

		out, err = run("status")
		require.NoError(t, err)
		assert.Contains(t, out, "state:    pending")
		assert.Contains(t, out, "locked:   true")
		assert.Contains(t, out, "magic:    21524110 (expected DEADBEEF)")

		_, err = run("lock")
		assert.ErrorIs(t, err, record.ErrPrecondition)

		out, err = run("unlock")
		require.NoError(t, err)
		assert.Equal(t, "Record unlocked\n", out)

		out, err = run("show", "--plain")
		require.NoError(t, err)
		assert.Equal(t, "dead000000000000\n", out)
	})

	t.Run("status", func(t *testing.T) {
		out, err := run("status")
		require.NoError(t, err)
		assert.Contains(t, out, "state:    formatted")
		assert.Contains(t, out, "locked:   false")
		assert.Contains(t, out, "address:  0x0010")
		assert.Contains(t, out, "size:     15 bytes")
		assert.Contains(t, out, "version:  1 (expected 1)")
		assert.Contains(t, out, "(crc16)")
	})

	t.Run("dump", func(t *testing.T) {
		out, err := run("dump")
		require.NoError(t, err)
		assert.Contains(t, out, "state: formatted\n")
		assert.Contains(t, out, "@0010: EF BE AD DE 01 DE AD 00\n")
	})

	t.Run("format", func(t *testing.T) {
		out, err := run("format", "--hex", "01:02")
		require.NoError(t, err)
		assert.Equal(t, "Formatted record at address 16\n", out)

		out, err = run("show", "--plain")
		require.NoError(t, err)
		assert.Equal(t, "0102000000000000\n", out)
	})

	t.Run("payload flags", func(t *testing.T) {
		_, err := run("save")
		assert.ErrorContains(t, err, "a payload is required")

		_, err = run("save", "--hex", "01", "--file", "payload.bin")
		assert.ErrorContains(t, err, "use only one of")

		_, err = run("save", "--hex", "0102030405060708090a")
		assert.ErrorContains(t, err, "limit 8")

		payloadFile := filepath.Join(t.TempDir(), "payload.bin")
		require.NoError(t, os.WriteFile(payloadFile, []byte("settings"), 0600))
		_, err = run("save", "--file", payloadFile)
		require.NoError(t, err)

		out, err := run("show", "--plain")
		require.NoError(t, err)
		assert.Equal(t, "73657474696e6773\n", out)
	})
}

func TestCorruptRecordNeedsFormat(t *testing.T) {
	configPath, devicePath := setupConfig(t)
	run := func(args ...string) (string, error) {
		out, _, err := runCommand(t, append(args, "--config", configPath)...)
		return out, err
	}

	_, err := run("init")
	require.NoError(t, err)

	f, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{0x55}, testRecordAddr+codec.PayloadOffset)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "state:    corrupt")

	_, err = run("show")
	assert.ErrorIs(t, err, record.ErrNoData)

	_, err = run("save", "--hex", "01")
	assert.ErrorIs(t, err, record.ErrPrecondition)

	_, err = run("format")
	require.NoError(t, err)

	out, err = run("show", "--plain")
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000\n", out)
}

func TestInitCommand(t *testing.T) {
	SetContainer(di.NewContainer(nil))
	dir := t.TempDir()
	configPath := filepath.Join(dir, "nvrecord", "config.yaml")
	devicePath := filepath.Join(dir, "eeprom.img")

	out, _, err := runCommand(t, "init", "--config", configPath, "--device-path", devicePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+configPath)
	assert.Contains(t, out, "API key: ")
	assert.Contains(t, out, "Record at address 0 is formatted")

	info, err := os.Stat(devicePath)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, devicePath, cfg.Device.Path)
	assert.Len(t, cfg.Server.APIKey, 64)

	// A second run keeps the configuration and the record
	out, _, err = runCommand(t, "init", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing configuration")
}

func TestMissingConfig(t *testing.T) {
	SetContainer(di.NewContainer(nil))

	_, _, err := runCommand(t, "status", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "run 'nvrecord init' first")
}

func TestDumpFlag(t *testing.T) {
	configPath, _ := setupConfig(t)

	_, _, err := runCommand(t, "init", "--config", configPath)
	require.NoError(t, err)

	_, stderr, err := runCommand(t, "show", "--dump", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=dump")
	assert.Contains(t, stderr, `line="@0010: EF BE AD DE 01 00 00 00"`)
	assert.Contains(t, stderr, "run=")
}

type capturedStart struct {
	config  api.ServerConfig
	manager api.RecordManager
	payload []byte
	dataErr error
}

type stubStarter struct {
	captured *capturedStart
}

// StartServer records its arguments and reads the record while the device
// is still open.
func (s stubStarter) StartServer(ctx context.Context, manager api.RecordManager, _ *api.Metrics,
	_ prometheus.Gatherer, config api.ServerConfig) error {
	s.captured.config = config
	s.captured.manager = manager
	s.captured.payload, s.captured.dataErr = manager.Data(ctx)
	return nil
}

type stubServerFactory struct {
	captured *capturedStart
}

func (f stubServerFactory) CreateServerStarter() api.ServerStarter {
	return stubStarter(f)
}

func TestServeCommand(t *testing.T) {
	configPath, _ := setupConfig(t)
	_, _, err := runCommand(t, "init", "--config", configPath)
	require.NoError(t, err)

	captured := &capturedStart{}
	container.SetServerFactory(stubServerFactory{captured: captured})

	_, _, err = runCommand(t, "serve", "--config", configPath, "--port", "9200")
	require.NoError(t, err)

	assert.Equal(t, 9200, captured.config.Port)
	assert.Equal(t, "127.0.0.1", captured.config.Bind)
	require.NotNil(t, captured.manager)
	assert.Equal(t, int64(testRecordAddr), captured.manager.Block().Address())
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{in: "deadbeef", want: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{in: "DE AD BE EF", want: []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{in: "de:ad", want: []byte{0xDE, 0xAD}},
		{in: "", want: []byte{}},
		{in: "abc", wantErr: true},
		{in: "zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHex(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpCommand(t *testing.T) {
	SetContainer(di.NewContainer(nil))
	captured := &capturedStart{}
	container.SetServerFactory(stubServerFactory{captured: captured})

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	devicePath := filepath.Join(dir, "eeprom.img")

	out, _, err := runCommand(t, "up", "--config", configPath, "--device-path", devicePath, "--bind", "0.0.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+configPath)

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.APIKey, captured.config.APIKey)
	assert.Equal(t, "0.0.0.0", captured.config.Bind)
	assert.Equal(t, 8080, captured.config.Port)

	// The record was formatted before serving
	require.NoError(t, captured.dataErr)
	assert.Equal(t, make([]byte, cfg.Record.PayloadSize), captured.payload)

	out, _, err = runCommand(t, "up", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Using existing configuration")
}
