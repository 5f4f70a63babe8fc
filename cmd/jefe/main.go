// Jefe drives a dashboard of AI coding agents, each hosted in its own
// terminal multiplexer session, from a single terminal UI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jefehq/jefe/internal/config"
	"github.com/jefehq/jefe/internal/domain"
	"github.com/jefehq/jefe/internal/ptymux"
	"github.com/jefehq/jefe/internal/state"
	"github.com/jefehq/jefe/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// defaultAgentCommand is the root command run inside each session when
// JEFE_AGENT_COMMAND is unset; real deployments are expected to point
// JEFE_AGENT_COMMAND at an actual coding-agent CLI.
const defaultAgentCommand = "bash"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Print("\033[?1049l") // exit alt screen
			fmt.Print("\033[?25h")   // show cursor
			fmt.Print("\033[0m")     // reset colors
			fmt.Fprintf(os.Stderr, "\n\nPANIC: %v\n", r)
			os.Exit(1)
		}
	}()

	logger, closeLog, err := setupLogging()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:     "jefe",
		Short:   "Terminal dashboard for AI coding agent sessions",
		Version: Version,
	}
	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newDoctorCmd(logger))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() (*slog.Logger, func(), error) {
	logPath := "jefe.log"
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}

	level := slog.LevelInfo
	if os.Getenv("JEFE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level})
	return slog.New(handler), func() { logFile.Close() }, nil
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(logger)
		},
	}
}

func runDashboard(logger *slog.Logger) error {
	store, err := config.NewStore(logger)
	if err != nil {
		return fmt.Errorf("resolve config paths: %w", err)
	}

	catalog := store.LoadCatalog()
	settings := store.LoadSettings()

	agentCommand := os.Getenv("JEFE_AGENT_COMMAND")
	if agentCommand == "" {
		agentCommand = defaultAgentCommand
	}

	manager := ptymux.NewManager(logger)
	defer manager.Close()

	manager.Seed(seedSlots(catalog, agentCommand))
	config.Reconcile(catalog, manager)

	st := state.New(catalog)
	st.Settings = settings

	app, err := tui.New(st, manager, store, agentCommand, logger)
	if err != nil {
		return fmt.Errorf("initialize terminal: %w", err)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}

	if err := store.SaveCatalog(catalog); err != nil {
		logger.Warn("final catalog save failed", "error", err)
	}
	return nil
}

// seedSlots rebuilds the PTY manager's session metadata from a freshly
// loaded catalog, so kill/relaunch/attach work on sessions this process
// did not itself spawn.
func seedSlots(catalog *domain.Catalog, agentCommand string) map[int]ptymux.AgentSession {
	slots := make(map[int]ptymux.AgentSession)
	for _, repo := range catalog.Repositories {
		for _, ag := range repo.Agents {
			if !ag.HasPTYSlot() {
				continue
			}
			slots[ag.PTYSlot] = ptymux.AgentSession{
				WorkDir:      ag.WorkDir,
				Profile:      ag.Profile,
				Mode:         ag.Mode,
				AgentCommand: agentCommand,
			}
		}
	}
	return slots
}

func newDoctorCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diff the persisted catalog against live sessions without touching either",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(logger)
		},
	}
}

// runDoctor is a read-only diagnostic: for every agent with a PTY slot, it
// reports whether a live session exists, without reconciling or mutating
// the catalog. It never kills, creates, or relaunches anything.
func runDoctor(logger *slog.Logger) error {
	store, err := config.NewStore(logger)
	if err != nil {
		return fmt.Errorf("resolve config paths: %w", err)
	}

	catalog := store.LoadCatalog()
	manager := ptymux.NewManager(logger)
	defer manager.Close()

	fmt.Printf("settings: %s\n", store.SettingsPath())
	fmt.Printf("catalog:  %s\n", store.CatalogPath())
	fmt.Println()

	for _, repo := range catalog.Repositories {
		fmt.Printf("%s (%s)\n", repo.Name, repo.Slug)
		for _, ag := range repo.Agents {
			state := "no session"
			if ag.HasPTYSlot() {
				if manager.IsAlive(ag.PTYSlot) {
					state = "alive"
				} else {
					state = "dead"
				}
			}
			fmt.Printf("  #%d %-20s slot=%d  %s\n", ag.DisplayID, ag.Name, ag.PTYSlot, state)
		}
	}
	return nil
}
