package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/handler"
	"github.com/Oxbian/NAI/pkg/kiwix"
	"github.com/Oxbian/NAI/pkg/persistence"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/router"
	"github.com/Oxbian/NAI/pkg/wire"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configDir      string
	sessionFile    string
	transcriptPath string
	logFile        string
	userMessage    string
	apiKey         string
	verbose        bool
	timeout        time.Duration

	logger *zap.Logger
)

func GetEnv(name, fallback string) string {
	value, ok := os.LookupEnv(name)
	if ok {
		return value
	} else {
		return fallback
	}
}

var rootCmd = &cobra.Command{
	Use:   "nai",
	Short: "Terminal assistant that routes each message to chat, summary or offline Wikipedia",
	Long: `nai asks a categorizer model what kind of answer a message needs and hands
the conversation to the matching handler: plain chat, a summary of the
conversation, or a retrieval pipeline over a local kiwix mirror.

Personas are read from --config-dir. Type /resume for a summary and /quit to leave.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(logFile, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configDir, "config-dir", GetEnv("NAI_CONFIG_DIR", "config"), "Directory holding the persona documents")
	flags.StringVar(&sessionFile, "session-file", "", "Use this file to save and resume chat sessions")
	flags.StringVar(&transcriptPath, "transcript", GetEnv("NAI_TRANSCRIPT", ""), "SQLite database receiving every message")
	flags.StringVar(&logFile, "log-file", "log.txt", "File receiving the logs")
	flags.StringVarP(&userMessage, "message", "m", "", "Send this message once and exit")
	flags.StringVar(&apiKey, "api-key", GetEnv("OPENAI_API_KEY", ""), "Bearer token for personas without their own key")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	flags.DurationVar(&timeout, "timeout", 0, "Upper bound for a single turn (0 waits forever)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(path string, debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	return config.Build()
}

func runChat(cmd *cobra.Command, args []string) error {
	set, err := persona.LoadSet(configDir)
	if err != nil {
		return fmt.Errorf("loading personas from %s: %w", configDir, err)
	}
	for _, p := range set.All() {
		logger.Debug("Persona loaded", zap.String("role", p.Name), zap.String("model", p.Model), zap.String("api", string(p.API)))
	}

	conv, err := resume(sessionFile)
	if err != nil {
		return err
	}

	var transcript router.Transcript = persistence.NopTranscript{}
	if transcriptPath != "" {
		sqlite, err := persistence.OpenTranscript(transcriptPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		transcript = sqlite
	}

	ui := newFrontEnd(os.Stdout)
	orchestrator := newOrchestrator(set, conv, transcript, logger, ui.showState)
	logger.Info("Session started", zap.String("conversation", conv.ID), zap.Int("messages", conv.Len()))

	if userMessage != "" {
		return ui.once(orchestrator, userMessage, saver(sessionFile, conv))
	}
	return ui.loop(orchestrator, saver(sessionFile, conv))
}

// newOrchestrator wires the personas to their handlers behind one router.
func newOrchestrator(set *persona.Set, conv *conversation.Conversation, transcript router.Transcript, logger *zap.Logger, onState func(router.State)) *router.Orchestrator {
	completer := wire.NewMux(wire.WithLogger(logger.Named("wire")), wire.WithAPIKey(apiKey))
	mirror := kiwix.NewClient(set.Wiki.URL, set.Wiki.Collection, kiwix.WithLogger(logger.Named("kiwix")))

	return router.New(conv, router.Config{
		Categorizer: router.NewCategorizer(completer, set.Categorize),
		Chat:        handler.NewChat(completer, set.Chat),
		Resume:      handler.NewResume(completer, set.Resume),
		Wikipedia: handler.NewWiki(completer, handler.WikiPersonas{
			Search: set.WikiSearch,
			Best:   set.WikiBest,
			Resume: set.WikiResume,
		}, mirror, logger.Named("wiki")),
		Transcript:    transcript,
		Logger:        logger.Named("router"),
		OnStateChange: onState,
		TurnTimeout:   timeout,
	})
}

// resume loads the session file when one is configured.
func resume(path string) (*conversation.Conversation, error) {
	if path == "" {
		return conversation.New(), nil
	}
	conv, err := persistence.TryToResumeSession(path)
	if err != nil {
		return nil, fmt.Errorf("resuming session %s: %w", path, err)
	}
	return conv, nil
}

// saver returns the hook run after every turn.
func saver(path string, conv *conversation.Conversation) func() error {
	return func() error {
		if path == "" {
			return nil
		}
		return persistence.SaveSession(path, conv)
	}
}
