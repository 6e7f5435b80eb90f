// Command plugd is an OMA LWM2M client exposing IPSO Power Control
// instances over CoAP, bootstrapping or registering directly against a
// configured server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/nfi/contiki-lwm2m/engine"
	"github.com/nfi/contiki-lwm2m/ipso"
	"github.com/nfi/contiki-lwm2m/platform"
	"github.com/nfi/contiki-lwm2m/transport"
)

const version = "0.1.0"

func main() {
	var (
		dispVersion bool
		configPath  string
		prepare     bool
		bootstrap   bool
		identity    string
		psk         string
		endpoint    string
	)

	flag.BoolVar(&dispVersion, "version", false, "print the version and exit")
	flag.StringVar(&configPath, "c", "./config.json", "path to the configuration file")
	flag.BoolVar(&prepare, "init", false, "write a default configuration file and exit")
	flag.BoolVar(&bootstrap, "b", false, "use the configured bootstrap server instead of direct registration")
	flag.StringVar(&identity, "identity", "", "PSK identity for direct registration")
	flag.StringVar(&psk, "psk", "", "pre-shared key for direct registration, base64 (prompted if omitted with -identity)")
	flag.StringVar(&endpoint, "endpoint", "", "override the endpoint client name")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if dispVersion {
		fmt.Printf("plugd version %s\n", version)
		os.Exit(0)
	}

	if !filepath.IsAbs(configPath) {
		if cwd, err := os.Getwd(); err == nil {
			configPath = filepath.Join(cwd, configPath)
		}
	}

	if prepare {
		if err := writeDefaultConfigInteractive(configPath); err != nil {
			log.Fatal().Err(err).Msg("failed to write default configuration")
		}
		os.Exit(0)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration; run with -init first")
	}

	if endpoint != "" {
		config.EndpointClientName = endpoint
	}

	if bootstrap && (identity != "" || psk != "") {
		log.Fatal().Msg("-b and -identity/-psk are mutually exclusive")
	}
	if identity != "" && psk == "" {
		psk, err = promptForSecret("pre-shared key: ")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read pre-shared key")
		}
	}
	if identity != "" {
		config.Identity = identity
		config.PSK = psk
	}

	if err := run(config, bootstrap, log); err != nil {
		log.Fatal().Err(err).Msg("plugd exited with an error")
	}
}

func run(config *Config, useBootstrap bool, log zerolog.Logger) error {
	reg := engine.NewRegistry(engine.DefaultMaxObjects)
	clock := platform.NewSystemClock()
	network := platform.NewSystemNetwork()

	security := ipso.NewSecurity(2)
	server := ipso.NewServer(2)
	if config.Identity != "" {
		if _, err := ipso.AddSecurityInstance(security, 0, config.RegistrationServer, false, config.Identity, config.PSK, 123); err != nil {
			return fmt.Errorf("configuring security object: %w", err)
		}
		if _, err := ipso.AddServerInstance(server, 0, 123, int64(config.Lifetime)); err != nil {
			return fmt.Errorf("configuring server object: %w", err)
		}
	}
	device := ipso.NewDevice("Yanzi Networks", "plugd", func() {
		log.Warn().Msg("reboot requested over LWM2M; exiting")
		os.Exit(0)
	})

	power := ipso.NewPowerControl(clock, config.PowerControlInstances)
	for i := 0; i < config.PowerControlInstances; i++ {
		if _, err := power.AddInstance(uint16(i)); err != nil {
			return err
		}
	}
	if err := reg.Register(power.Object); err != nil {
		return err
	}

	endpoint := engine.DeriveEndpoint(config.EndpointClientName, "plugd-", network)

	coapServer, err := transport.NewServer(config.ListenAddress, reg, log)
	if err != nil {
		return fmt.Errorf("starting CoAP listener: %w", err)
	}
	defer coapServer.Close()

	client := engine.NewClient(reg, coapServer, network, endpoint)
	if err := client.RegisterDefaultObjects(security, server, device.Object); err != nil {
		return err
	}
	client.SetLifetime(config.Lifetime)
	if useBootstrap {
		client.UseBootstrapServer(config.BootstrapServer)
		client.UseRegistrationServer("")
	} else {
		client.UseRegistrationServer(config.RegistrationServer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := coapServer.Serve(ctx); err != nil {
			log.Error().Err(err).Msg("CoAP listener stopped")
		}
	}()

	ticker := time.NewTicker(engine.TickInterval * time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	log.Info().Str("endpoint", endpoint).Str("listen", config.ListenAddress).Msg("plugd started")
	for {
		select {
		case <-sigCh:
			log.Info().Msg("shutdown signal received")
			return nil
		case <-ticker.C:
			tickCtx, tickCancel := context.WithTimeout(ctx, 10*time.Second)
			if err := client.Tick(tickCtx); err != nil {
				log.Warn().Err(err).Str("state", client.State().String()).Msg("registration tick failed")
			}
			tickCancel()
		}
	}
}

func writeDefaultConfigInteractive(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	fmt.Printf("no configuration file found at %s. Create a default one? [Y/n] ", path)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return fmt.Errorf("no response read")
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer != "" && answer != "y" && answer != "yes" {
		return fmt.Errorf("aborted by user")
	}
	return SaveConfig(path, DefaultConfig())
}

func promptForSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
