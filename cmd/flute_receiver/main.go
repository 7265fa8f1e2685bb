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

	"flutecore/pkg/file"
	"flutecore/pkg/receiver"
	"flutecore/pkg/transport"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Receiver ReceiverConfigSection `yaml:"receiver"`
}

type ReceiverConfigSection struct {
	Network   ReceiverNetworkConfig `yaml:"network"`
	Flute     ReceiverFluteConfig   `yaml:"flute"`
	OutputDir string                `yaml:"output_dir"`
}

type ReceiverNetworkConfig struct {
	Group     string `yaml:"group"`     // "224.0.0.1"
	Port      uint16 `yaml:"port"`
	Interface string `yaml:"interface"` // optional, e.g. "eth0"
}

type ReceiverFluteConfig struct {
	TSI            uint64 `yaml:"tsi"`
	EnableMD5      bool   `yaml:"enable_md5"`
	ExpiryCheckSec uint32 `yaml:"expiry_check_seconds"`
}

func loadConfig(path string) (*AppConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &cfg, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	fmt.Printf("[flute-receiver] loading config: %s\n", *configPath)
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Receiver.OutputDir != "" {
		if err := os.MkdirAll(cfg.Receiver.OutputDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
			os.Exit(1)
		}
	}

	core := receiver.New(receiver.Config{
		TSI:       cfg.Receiver.Flute.TSI,
		EnableMD5: cfg.Receiver.Flute.EnableMD5,
		Sink:      makeSink(cfg.Receiver.OutputDir),
	})

	endpoint := transport.NewEndpoint(
		cfg.Receiver.Network.Interface,
		cfg.Receiver.Network.Group,
		cfg.Receiver.Network.Port,
	)

	listener, err := transport.Join(endpoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to join multicast group: %v\n", err)
		os.Exit(1)
	}
	defer listener.Close()

	fmt.Printf("[flute-receiver] listening on %s (tsi=%d)\n", endpoint.GroupAddr(), cfg.Receiver.Flute.TSI)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("[flute-receiver] shutting down")
		core.Stop()
		cancel()
	}()

	expiryInterval := 30 * time.Second
	if cfg.Receiver.Flute.ExpiryCheckSec > 0 {
		expiryInterval = time.Duration(cfg.Receiver.Flute.ExpiryCheckSec) * time.Second
	}
	go runExpirySweep(ctx, core, expiryInterval)

	if err := listener.Serve(ctx, core.HandleReceivedPacket); err != nil {
		fmt.Fprintf(os.Stderr, "listener stopped: %v\n", err)
		os.Exit(1)
	}
}

func runExpirySweep(ctx context.Context, core *receiver.Core, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			core.RemoveExpiredFiles(24 * time.Hour)
		}
	}
}

func makeSink(outputDir string) receiver.CompletionSink {
	return func(f *file.File) {
		fmt.Printf("[flute-receiver] completed: %s (%d bytes)\n", f.Meta.ContentLocation, len(f.Buffer))
		if outputDir == "" {
			return
		}
		dst := filepath.Join(outputDir, filepath.Base(f.Meta.ContentLocation))
		if err := os.WriteFile(dst, f.Buffer, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "[flute-receiver] write %s: %v\n", dst, err)
		}
	}
}
