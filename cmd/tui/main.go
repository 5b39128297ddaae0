package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mbostrength-go/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== MBO Strength Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit strategy and risk knobs")
		fmt.Println("3) Edit feed settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch engine")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editFeed(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchEngine(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	p := cfg.Strategy.Params
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Instrument: %s (price step %s)\n", cfg.Instrument.Symbol, cfg.Instrument.PriceStep)
	fmt.Printf("Feed: %s", cfg.Feed.Provider)
	switch cfg.Feed.Provider {
	case "websocket":
		fmt.Printf(" %s", cfg.Feed.URL)
	case "replay":
		fmt.Printf(" %s", cfg.Feed.ReplayPath)
	}
	fmt.Println()
	fmt.Printf("Window: max ticks %d | tick size %d | size threshold %d\n", p.MaxTicks, p.TickSize, p.SizeThreshold)
	fmt.Printf("Timing: refresh %dms | position tick %dms | EMA alpha %.3f\n", p.RefreshMs, p.IntervalMs, p.Alpha)
	fmt.Printf("Order qty: %d (risk cap %d)\n", p.OrderQty, cfg.Risk.MaxOrderQty)
	fmt.Printf("Paper: enabled=%t starting cash $%.2f fills %s\n", cfg.Paper.Enabled, cfg.Paper.StartingCash, cfg.Paper.FillsPath)
	if cfg.NATS.URL != "" {
		fmt.Printf("NATS: %s subject %s\n", cfg.NATS.URL, cfg.NATS.Subject)
	}
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	p := &cfg.Strategy.Params
	p.MaxTicks = promptInt(reader, "Max ticks (1-10000)", p.MaxTicks)
	p.TickSize = promptInt(reader, "Tick size", p.TickSize)
	p.SizeThreshold = int64(promptInt(reader, "Size threshold", int(p.SizeThreshold)))
	p.OrderQty = promptInt(reader, "Order qty", p.OrderQty)
	p.RefreshMs = promptInt(reader, "Refresh cycle (ms)", p.RefreshMs)
	p.Alpha = promptFloat(reader, "EMA alpha (0-1)", p.Alpha)
	cfg.Risk.MaxOrderQty = promptInt(reader, "Risk max order qty", cfg.Risk.MaxOrderQty)
	cfg.Paper.StartingCash = promptFloat(reader, "Paper starting cash", cfg.Paper.StartingCash)
}

func editFeed(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Feed ---")
	fmt.Printf("Provider (stub/websocket/replay) [%s]: ", cfg.Feed.Provider)
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Feed.Provider = strings.ToLower(strings.TrimSpace(line))
	}
	switch cfg.Feed.Provider {
	case "websocket":
		cfg.Feed.URL = promptString(reader, "Websocket URL", cfg.Feed.URL)
		cfg.Feed.Subscribe = promptString(reader, "Subscribe message", cfg.Feed.Subscribe)
	case "replay":
		cfg.Feed.ReplayPath = promptString(reader, "Replay file", cfg.Feed.ReplayPath)
		cfg.Feed.ReplayPaceMs = promptInt(reader, "Replay pace (ms)", cfg.Feed.ReplayPaceMs)
	default:
		cfg.Feed.StubSeed = int64(promptInt(reader, "Stub seed", int(cfg.Feed.StubSeed)))
		cfg.Feed.StubRateMs = promptInt(reader, "Stub rate (ms)", cfg.Feed.StubRateMs)
	}
}

func launchEngine(reader *bufio.Reader) {
	fmt.Println("Launching engine (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/mbostrength", "-config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the engine and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func promptInt(reader *bufio.Reader, label string, current int) int {
	fmt.Printf("%s [%d]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.Atoi(line)
	if err != nil {
		fmt.Printf("invalid integer, keeping %d\n", current)
		return current
	}
	return val
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}
