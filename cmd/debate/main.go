// Package main provides the DebateCore CLI application entry point.
// DebateCore is a conversation engine for debating with configurable AI
// personalities, interactively or bot versus bot.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debatecore/internal/logger"
	"debatecore/internal/services"
	"debatecore/internal/version"
	"debatecore/pkg/debatetypes"
)

var (
	logLevel        string
	logFile         string
	testMode        bool
	personalityFile string
	provider        string
	model           string
	temperature     float64
)

// app bundles the initialized services the commands operate on.
type app struct {
	session       *services.SessionService
	personalities *services.PersonalityService
	persistence   *services.PersistenceService
	orchestrator  *services.OrchestratorService
	markdown      *services.MarkdownService
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "debate",
	Short: "DebateCore - debate with AI personalities",
	Long: `DebateCore is a conversation engine for debating with configurable AI personalities.
Run without arguments for an interactive session, or use 'auto' for bot-vs-bot debates.`,
	Run: runInteractive,
}

// autoCmd runs a bot-vs-bot debate sequence
var autoCmd = &cobra.Command{
	Use:   "auto <claim>",
	Short: "Run an automated bot-vs-bot debate",
	Long: `Run a bounded bot-vs-bot debate on the given claim. Two personalities
alternate strictly; Ctrl-C stops the debate at the next turn boundary and
keeps every turn completed so far.`,
	Args: cobra.ExactArgs(1),
	Run:  runAuto,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "Run in deterministic test mode")
	rootCmd.PersistentFlags().StringVar(&personalityFile, "personalities", "", "Path to a personality config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "gemini", "Generation provider (gemini|anthropic|openai)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Provider model ID (provider default when empty)")
	rootCmd.PersistentFlags().Float64Var(&temperature, "temperature", 1.0, "Sampling temperature, clamped to [0.0, 2.0]")

	autoCmd.Flags().String("bot-a", "", "Personality ID for the first speaker")
	autoCmd.Flags().String("bot-b", "", "Personality ID for the second speaker")
	autoCmd.Flags().Int("turns", 4, "Number of turns to run (clamped to [1, 10])")

	for _, name := range []string{"log-level", "log-file", "test-mode", "personalities", "provider", "model", "temperature"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(autoCmd)
	rootCmd.AddCommand(versionCmd)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// Environment overrides come from .env when present.
	_ = godotenv.Load()

	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// initializeApp wires the service registry and returns the bundle the
// commands use. Personality resolution failures surface as warnings, not
// startup errors.
func initializeApp() (*app, error) {
	var personalities *services.PersonalityService
	if personalityFile != "" {
		personalities = services.NewPersonalityServiceFromFile(personalityFile)
	} else {
		personalities = services.NewPersonalityService()
	}

	session := services.NewSessionService()
	persistence := services.NewPersistenceService(session, personalities)
	orchestrator := services.NewOrchestratorService(session, personalities)
	markdown := services.NewMarkdownService(personalities)

	registry := services.NewRegistry()
	for _, svc := range []debatetypes.Service{personalities, session, persistence, orchestrator, markdown} {
		if err := registry.RegisterService(svc); err != nil {
			return nil, err
		}
	}
	if err := registry.InitializeAll(); err != nil {
		return nil, err
	}
	services.SetGlobalRegistry(registry)

	session.SetTestMode(testMode)
	session.SetTemperature(temperature)

	for id, err := range personalities.ResolutionFailures() {
		logger.Warn("Personality unavailable", "personality", id, "error", err)
	}

	factory := services.NewClientFactoryService()
	if err := factory.Initialize(); err != nil {
		return nil, err
	}
	client, err := factory.GetClientFromEnv(provider, model)
	if err != nil {
		return nil, err
	}
	orchestrator.SetClient(client)

	return &app{
		session:       session,
		personalities: personalities,
		persistence:   persistence,
		orchestrator:  orchestrator,
		markdown:      markdown,
	}, nil
}

func runInteractive(_ *cobra.Command, _ []string) {
	logger.Info("Starting DebateCore", "version", version.GetVersion())

	a, err := initializeApp()
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	fmt.Printf("DebateCore v%s\n", version.GetVersion())
	fmt.Println("Type a message to debate, or 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("debate> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !a.handleLine(line) {
			break
		}
	}
}

// handleLine dispatches one interactive input line. It returns false when
// the loop should exit.
func (a *app) handleLine(line string) bool {
	fields := strings.Fields(line)
	command := fields[0]
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch command {
	case "quit", "exit":
		return false
	case "help":
		a.printHelp()
	case "clear":
		if err := a.session.Clear(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		} else {
			fmt.Println("Conversation cleared.")
		}
	case "personalities":
		a.printPersonalities()
	case "personality":
		a.switchPersonality(arg)
	case "temp":
		a.setTemperature(arg)
	case "thoughts":
		a.setThoughts(arg)
	case "save":
		a.saveState(arg)
	case "load":
		a.loadState(arg)
	case "export":
		a.exportTranscript(arg)
	default:
		a.userTurn(line)
	}
	return true
}

func (a *app) printHelp() {
	fmt.Println(`Commands:
  personalities        list available personalities
  personality <id>     switch the active personality
  temp <value>         set sampling temperature (0.0-2.0)
  thoughts on|off      toggle thinking display
  save <file>          save the conversation state to a JSON file
  load <file>          load a conversation state file
  export <file>        export the transcript as markdown
  clear                reset the conversation
  quit                 exit

Anything else is sent to the active personality as your argument.`)
}

func (a *app) printPersonalities() {
	state := a.session.State()
	for _, id := range a.personalities.IDs() {
		p, err := a.personalities.Resolve(id)
		if err != nil {
			fmt.Printf("  %s (unavailable: %v)\n", id, err)
			continue
		}
		marker := " "
		if id == state.CurrentPersonality {
			marker = "*"
		}
		fmt.Printf("%s %s %s - %s\n", marker, p.Emoji, id, p.Description)
	}
}

func (a *app) switchPersonality(id string) {
	if id == "" {
		fmt.Fprintln(os.Stderr, "Usage: personality <id>")
		return
	}
	p, err := a.personalities.Resolve(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	a.session.SetCurrentPersonality(id)
	fmt.Printf("Now debating %s %s.\n", p.Emoji, p.Name)
}

func (a *app) setTemperature(arg string) {
	t, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Usage: temp <value>")
		return
	}
	a.session.SetTemperature(t)
	fmt.Printf("Temperature set to %.1f.\n", a.session.State().Temperature)
}

func (a *app) setThoughts(arg string) {
	switch arg {
	case "on":
		a.session.SetShowThoughts(true)
		fmt.Println("Thinking display enabled.")
	case "off":
		a.session.SetShowThoughts(false)
		fmt.Println("Thinking display disabled.")
	default:
		fmt.Fprintln(os.Stderr, "Usage: thoughts on|off")
	}
}

func (a *app) saveState(path string) {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: save <file>")
		return
	}
	if err := a.persistence.SaveFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Printf("Saved conversation to %s.\n", path)
}

func (a *app) loadState(path string) {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: load <file>")
		return
	}
	diagnostics, err := a.persistence.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	for _, d := range diagnostics {
		fmt.Printf("Warning: %s\n", d.Message)
	}
	fmt.Printf("Loaded conversation from %s (%d messages).\n", path, a.session.State().TurnCount())
}

func (a *app) exportTranscript(path string) {
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: export <file>")
		return
	}
	markdown, err := a.markdown.ExportTranscript(a.session.State())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Printf("Exported transcript to %s.\n", path)
}

// userTurn records the user's message and streams one response from the
// active personality.
func (a *app) userTurn(content string) {
	if _, err := a.session.AddUserTurn(content); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	state := a.session.State()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := a.orchestrator.GenerateTurn(ctx, state.CurrentPersonality, state.ShowThoughts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	a.consumeEvents(events)
}

func runAuto(cmd *cobra.Command, args []string) {
	a, err := initializeApp()
	if err != nil {
		logger.Fatal("Failed to initialize services", "error", err)
	}

	botA, _ := cmd.Flags().GetString("bot-a")
	botB, _ := cmd.Flags().GetString("bot-b")
	turns, _ := cmd.Flags().GetInt("turns")
	if botA == "" || botB == "" {
		logger.Fatal("Both --bot-a and --bot-b are required")
	}

	if _, err := a.session.AddUserTurn(args[0]); err != nil {
		logger.Fatal("Failed to record claim", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := a.orchestrator.GenerateSequence(ctx, botA, botB, turns)
	if err != nil {
		logger.Fatal("Failed to start debate", "error", err)
	}
	a.consumeEvents(events)
}

// consumeEvents prints the event stream of a generation operation:
// streamed thinking and answer chunks live, then the terminal outcome.
func (a *app) consumeEvents(events <-chan debatetypes.TurnEvent) {
	thinkingOpen := false
	for event := range events {
		switch event.Kind {
		case debatetypes.EventTurnStarted:
			thinkingOpen = false
		case debatetypes.EventThinkingChunk:
			if !thinkingOpen {
				fmt.Print("\n[thinking] ")
				thinkingOpen = true
			}
			fmt.Print(event.Content)
		case debatetypes.EventAnswerChunk:
			if thinkingOpen {
				fmt.Print("\n\n")
				thinkingOpen = false
			}
			fmt.Print(event.Content)
		case debatetypes.EventTurnComplete:
			fmt.Println()
			if event.Turn != nil && event.Turn.PersonalityID != "" {
				if p, err := a.personalities.Resolve(event.Turn.PersonalityID); err == nil {
					fmt.Printf("  (%s %s, turn %d of %d)\n", p.Emoji, p.Name, event.Completed, event.Requested)
				}
			}
		case debatetypes.EventTurnFailed:
			fmt.Println()
			var genErr *debatetypes.GenerationError
			if errors.As(event.Err, &genErr) {
				fmt.Fprintf(os.Stderr, "Generation failed: %v\n", genErr)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", event.Err)
			}
		case debatetypes.EventSequenceComplete:
			fmt.Printf("Debate complete: %d turns.\n", event.Completed)
		case debatetypes.EventSequenceCancelled:
			fmt.Printf("Debate stopped after %d of %d turns.\n", event.Completed, event.Requested)
		}
	}
}
