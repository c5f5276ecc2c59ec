package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/infra"
	"studio/internal/providers/did"
)

func main() {
	var (
		scriptFlag  string
		voiceFlag   string
		timeoutFlag time.Duration
	)
	flag.StringVar(&scriptFlag, "script", "", "Script for the presenter to speak (falls back to stdin)")
	flag.StringVar(&voiceFlag, "voice", "", "Voice id, e.g. en-US-JennyNeural (defaults to the configured voice)")
	flag.DurationVar(&timeoutFlag, "timeout", 10*time.Minute, "How long to wait for the video before giving up")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := infra.NewLogger("cli").With().Str("cmd", "talk").Logger()

	script := strings.TrimSpace(scriptFlag)
	if script == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read script from stdin: %v\n", err)
			os.Exit(1)
		}
		script = strings.TrimSpace(string(data))
	}
	if script == "" {
		fmt.Fprintln(os.Stderr, "Please enter a script first.")
		os.Exit(1)
	}

	client, err := did.NewClient(did.Options{
		APIKey:         cfg.DIDAPIKey,
		BaseURL:        cfg.DIDBaseURL,
		SourceURL:      cfg.AvatarSourceURL,
		ResultFormat:   cfg.ResultFormat,
		DefaultVoiceID: cfg.DefaultVoiceID,
		Logger:         &logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build provider client: %v\n", err)
		os.Exit(1)
	}
	if !client.HasCredentials() {
		fmt.Fprintln(os.Stderr, "D_ID_API_KEY is required via environment or .env")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	talk, err := client.CreateTalk(ctx, did.TalkRequest{Script: script, VoiceID: voiceFlag})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start the video generation job: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Video generation started! Job ID: %s. Please wait, this can take a few minutes.\n", talk.ID)

	result, err := client.Await(ctx, talk.ID, did.AwaitOptions{
		Interval: cfg.PollInterval,
		Timeout:  timeoutFlag,
		Observer: func(st did.TalkStatus) {
			fmt.Printf("Video generation status: %s...\n", st.Status)
		},
	})
	if err != nil {
		if errors.Is(err, did.ErrAwaitTimeout) {
			fmt.Fprintln(os.Stderr, "timed out waiting for the video")
		} else {
			fmt.Fprintf(os.Stderr, "failed to retrieve the generated video: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("Your AI Presenter video is ready!")
	fmt.Println(result.URL)
}
