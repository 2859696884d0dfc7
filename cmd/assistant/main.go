// Binary assistant is a reading-assistant REPL over the dispatcher: prompts
// are routed to the on-device runtime, the cloud chat-completions endpoint,
// or the deterministic stub, and the resulting turns are streamed to the
// terminal.
//
// Usage:
//
//	assistant [flags]
//
// Flags:
//
//	-config       path to YAML config file (default: assistant.yaml)
//	-prompt       one-shot prompt (skips interactive mode)
//	-transcript   transcript ID to resume (prefix match)
//	-transcripts  list recent transcripts and exit
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nahjlib/assistant/pkg/assist"
	"github.com/nahjlib/assistant/pkg/assist/backends/cloud"
	"github.com/nahjlib/assistant/pkg/assist/backends/ondevice"
	"github.com/nahjlib/assistant/pkg/assist/backends/stub"
	"github.com/nahjlib/assistant/pkg/settings"
	"github.com/nahjlib/assistant/pkg/transcript"
)

const defaultConfigPath = "assistant.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to assistant config file")
	oneShot := flag.String("prompt", "", "one-shot prompt (non-interactive)")
	transcriptFlag := flag.String("transcript", "", "transcript ID to resume (prefix match)")
	listTranscripts := flag.Bool("transcripts", false, "list recent transcripts and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatalf("config: %v", err)
	}

	// Handle -transcripts flag: list transcripts and exit.
	trDir := cfg.TranscriptsDir
	if trDir == "" {
		trDir = defaultTranscriptsDir()
	}
	if *listTranscripts {
		infos, err := transcript.List(trDir)
		if err != nil {
			fatalf("transcripts: %v", err)
		}
		if len(infos) == 0 {
			fmt.Println("[no transcripts]")
			return
		}
		for _, info := range infos {
			fmt.Printf("%s  prompts=%-3d  %s\n", info.ID[:8], info.Prompts, info.Timestamp)
		}
		return
	}

	// Settings store.
	settingsPath := cfg.SettingsPath
	if settingsPath == "" {
		settingsPath, err = settings.DefaultPath()
		if err != nil {
			fatalf("settings: %v", err)
		}
	}
	store, err := settings.Open(settingsPath)
	if err != nil {
		fatalf("settings: %v", err)
	}
	defer store.Close()

	// Config values override persisted settings at startup.
	if cfg.Provider != "" {
		p, _ := assist.ParseProvider(cfg.Provider)
		if err := store.SetProvider(p); err != nil {
			fatalf("settings: %v", err)
		}
	}
	if cfg.Model != "" {
		if err := store.SetModel(cfg.Model); err != nil {
			fatalf("settings: %v", err)
		}
	}
	if cfg.APIKey != "" {
		if err := store.SetCredential(cfg.APIKey); err != nil {
			fatalf("settings: %v", err)
		}
	}

	// Backends.
	runtime := ondevice.NewOllamaRuntime(cfg.RuntimeURL, cfg.RuntimeModel)

	stubBackend := stub.New()
	if d := cfg.Stub.ThinkDelay(); d > 0 {
		stubBackend.ThinkDelay = d
	}
	if d := cfg.Stub.ReplyDelay(); d > 0 {
		stubBackend.ReplyDelay = d
	}

	dispatcher, err := assist.New(assist.Options{
		Settings: store,
		Hooks:    terminalHooks(),
		OnDevice: ondevice.New(runtime),
		Cloud:    cloud.New(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second),
		Stub:     stubBackend,
		RuntimeState: func() assist.RuntimeState {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return runtime.State(ctx)
		},
	})
	if err != nil {
		fatalf("dispatcher: %v", err)
	}

	// Transcript persistence.
	var tr *transcript.Transcript
	if *transcriptFlag != "" {
		tr, err = transcript.Load(trDir, *transcriptFlag)
		if err != nil {
			fatalf("transcript resume: %v", err)
		}
		fmt.Printf("[assistant] resumed transcript %s\n", tr.ID()[:8])
	} else {
		tr, err = transcript.Create(trDir)
		if err != nil {
			// Non-fatal: the assistant works without persistence.
			fmt.Fprintf(os.Stderr, "[warn] could not create transcript: %v\n", err)
			tr = nil
		} else {
			fmt.Printf("[assistant] transcript %s\n", tr.ID()[:8])
		}
	}
	if tr != nil {
		defer tr.Close()
	}

	// Handle SIGINT / SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *oneShot != "" {
		runPrompt(ctx, dispatcher, store, tr, *oneShot)
		return
	}

	// Interactive REPL.
	provider, _ := store.Provider()
	model, _ := store.Model()
	fmt.Printf("[assistant] provider=%s model=%s\n", provider, model)
	fmt.Println("[assistant] type a prompt and press enter. Commands: /provider /model /models /key /status exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			return

		case line == "/status":
			printStatus(dispatcher, store)
			continue

		case line == "/models":
			for _, m := range assist.CloudModels() {
				marker := " "
				if m.ID == model {
					marker = "*"
				}
				fmt.Printf(" %s %-14s  %s  context=%d out=%d\n",
					marker, m.ID, m.DisplayName, m.ContextWindow, m.MaxOutputTokens)
			}
			continue

		case strings.HasPrefix(line, "/provider"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/provider"))
			if arg == "" {
				p, _ := store.Provider()
				fmt.Printf("[provider] %s\n", p)
				continue
			}
			p, err := assist.ParseProvider(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "provider: %v\n", err)
				continue
			}
			if err := store.SetProvider(p); err != nil {
				fmt.Fprintf(os.Stderr, "provider: %v\n", err)
				continue
			}
			fmt.Printf("[provider] %s\n", p)
			continue

		case strings.HasPrefix(line, "/model"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
			if arg == "" {
				m, _ := store.Model()
				fmt.Printf("[model] %s\n", m)
				continue
			}
			if err := store.SetModel(arg); err != nil {
				fmt.Fprintf(os.Stderr, "model: %v\n", err)
				continue
			}
			model = arg
			fmt.Printf("[model] %s\n", arg)
			continue

		case strings.HasPrefix(line, "/key"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/key"))
			if err := store.SetCredential(arg); err != nil {
				fmt.Fprintf(os.Stderr, "key: %v\n", err)
				continue
			}
			if arg == "" {
				fmt.Println("[key] cleared")
			} else {
				fmt.Println("[key] stored")
			}
			continue
		}

		runPrompt(ctx, dispatcher, store, tr, line)
	}
}

// ---------------------------------------------------------------------------
// Prompt handling
// ---------------------------------------------------------------------------

// runPrompt streams one turn exchange to the terminal. A stream failure is
// reported and answered with the stub's classification so the user always
// gets a final reply.
func runPrompt(ctx context.Context, d *assist.Dispatcher, store *settings.Store, tr *transcript.Transcript, prompt string) {
	if tr != nil {
		if _, err := tr.AppendPrompt(prompt); err != nil {
			fmt.Fprintf(os.Stderr, "[warn] transcript: %v\n", err)
		}
	}

	ch, wait := d.StreamTurn(ctx, prompt)

	var final assist.Turn
	got := false
	for turn := range ch {
		printTurn(turn)
		final = turn
		got = true
	}

	provider, _ := store.Provider()

	if err := wait(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, assist.ErrBusy) {
			return
		}
		// Last resort: answer from the deterministic classifier.
		final = stub.Classify(prompt)
		printTurn(final)
		got = true
		provider = assist.ProviderStub
	}

	if got && tr != nil {
		if _, err := tr.AppendTurn(string(provider), final); err != nil {
			fmt.Fprintf(os.Stderr, "[warn] transcript: %v\n", err)
		}
	}
}

func printTurn(turn assist.Turn) {
	if turn.Reply != "" {
		fmt.Println(turn.Reply)
	}
	for _, r := range turn.Results {
		fmt.Printf("  - %s\n", r)
	}
}

func printStatus(d *assist.Dispatcher, store *settings.Store) {
	provider, _ := store.Provider()
	model, _ := store.Model()
	cred, _ := store.Credential()
	env := d.Environment()
	avail := d.Availability()

	credState := "not set"
	if cred != "" {
		credState = "set"
	}
	fmt.Printf("[status] provider=%s model=%s credential=%s runtime=%v\n",
		provider, model, credState, env.Runtime)
	if avail.Available {
		fmt.Println("[status] provider available")
	} else {
		fmt.Printf("[status] provider unavailable: %s\n", avail.Reason)
	}
}

// ---------------------------------------------------------------------------
// Hooks
// ---------------------------------------------------------------------------

// terminalHooks prints the UI actions a host application would perform.
func terminalHooks() assist.Hooks {
	return assist.Hooks{
		OpenSection: func(s assist.Section) {
			fmt.Printf("[action] open %s\n", s)
		},
		SetDarkMode: func(on bool) {
			mode := "light"
			if on {
				mode = "dark"
			}
			fmt.Printf("[action] set %s mode\n", mode)
		},
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// loadConfig reads the config file. A missing file at the default path is
// fine; the assistant then runs on persisted settings and defaults.
func loadConfig(path string) (*assist.FileConfig, error) {
	cfg, err := assist.LoadFileConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
			return &assist.FileConfig{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

func defaultTranscriptsDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "transcripts"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "assistant", "transcripts")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(1)
}
