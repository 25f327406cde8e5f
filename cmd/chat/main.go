// Package main is a terminal client for the portfolio chat relay. It keeps
// conversation state on disk between runs and streams assistant replies to
// stdout as they arrive.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tommylisiak/portfolio-chat/internal/chatclient"
	"github.com/tommylisiak/portfolio-chat/internal/model"
	"github.com/tommylisiak/portfolio-chat/pkg/logger"
)

const defaultWelcome = "Hi! I'm Tommy's AI assistant. Ask me anything about his work in product, climate tech, or AI."

func main() {
	baseURL := os.Getenv("CHAT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	log, err := logger.New("warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	stateDir, err := stateDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve state dir: %v\n", err)
		os.Exit(1)
	}

	visitorID, err := chatclient.LoadOrCreateVisitorID(filepath.Join(stateDir, "visitor-id"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load visitor ID: %v\n", err)
		os.Exit(1)
	}

	storage, err := chatclient.NewFileStorage(filepath.Join(stateDir, "history.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open history file: %v\n", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	controller := chatclient.New(chatclient.Options{
		Endpoint:       baseURL + "/api/v1/chat",
		WelcomeMessage: defaultWelcome,
		Storage:        storage,
		Remote:         chatclient.NewHTTPRemote(baseURL+"/api/v1", visitorID, httpClient),
		OnToken:        func(token string) { fmt.Print(token) },
		HTTPClient:     httpClient,
		Logger:         log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C interrupts the in-flight send, a second one kills the process.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
		<-sigs
		os.Exit(1)
	}()

	if err := controller.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	for _, msg := range controller.Messages() {
		printMessage(msg)
	}
	fmt.Println("\nType a message, /clear to reset, /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/clear":
			if err := controller.ClearHistory(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "clear failed: %v\n", err)
				continue
			}
			fmt.Println("History cleared.")
			for _, msg := range controller.Messages() {
				printMessage(msg)
			}
			continue
		}

		fmt.Print("\nassistant: ")
		if err := controller.SendMessage(ctx, line); err != nil {
			fmt.Printf("\n%s\n", controller.Err())
			if ctx.Err() != nil {
				return
			}
			continue
		}
		fmt.Println()
	}
}

func printMessage(msg model.Message) {
	fmt.Printf("\n%s: %s\n", msg.Role, msg.Content)
}

func stateDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "portfolio-chat")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
