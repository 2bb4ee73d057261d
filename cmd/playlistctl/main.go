// Package main provides the playlist daemon control CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/playlistd/internal/api/httpapi"
)

var (
	app     = kingpin.New("playlistctl", "playlistd control client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Admin token (or set PLAYLISTD_ADMIN_TOKEN env)").Envar("PLAYLISTD_ADMIN_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	statusCmd     = app.Command("status", "Show daemon status")
	playlistCmd   = app.Command("playlist", "Print the cached playlist").Alias("show")
	foregroundCmd = app.Command("foreground", "Move the daemon to the foreground").Alias("fg")
	backgroundCmd = app.Command("background", "Move the daemon to the background").Alias("bg")
	disableCmd    = app.Command("disable", "Disable the playlist feature (admin)")
	enableCmd     = app.Command("enable", "Enable the playlist feature (admin)")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := httpapi.NewClient(*server, *token, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case playlistCmd.FullCommand():
		show(ctx, client)
	case foregroundCmd.FullCommand():
		printMessage(client.Foreground(ctx))
	case backgroundCmd.FullCommand():
		printMessage(client.Background(ctx))
	case disableCmd.FullCommand():
		requireToken()
		printMessage(client.Disable(ctx))
	case enableCmd.FullCommand():
		requireToken()
		printMessage(client.Enable(ctx))
	}
}

func requireToken() {
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or PLAYLISTD_ADMIN_TOKEN env)")
		os.Exit(1)
	}
}

func status(ctx context.Context, client *httpapi.Client) {
	s, err := client.Status(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== PLAYLISTD STATUS ===")
	fmt.Printf("Disabled: %v\n", s.Disabled)
	fmt.Printf("Polling: %v\n", s.Polling)
	if s.HasPlaylist {
		fmt.Printf("Playlist: cached (origin=%s)\n", s.Origin)
	} else {
		fmt.Println("Playlist: none")
	}
	fmt.Printf("First Download Callback Executed: %v\n", s.FirstCallbackExecuted)
	fmt.Printf("Subscribers: %d\n", s.Subscribers)
	fmt.Println()
}

func show(ctx context.Context, client *httpapi.Client) {
	raw, err := client.Playlist(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if raw == nil {
		fmt.Println("No playlist cached")
		return
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(out.String())
}

func printMessage(msg *httpapi.MessageResponse, err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if msg.Success {
		fmt.Println(msg.Message)
	} else {
		fmt.Printf("Failed: %s\n", msg.Message)
	}
}
