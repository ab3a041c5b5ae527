// viewer is a terminal client for the chat feed: it prints the recent
// history as a table and can optionally follow the live feed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"moonchat/client"
	"moonchat/domain/chat"
	"moonchat/internal/logs"
	"moonchat/projection"
)

type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=http://localhost:8080"`
	AuthToken string `env:"CHAT_AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL,default=WARN"`
}

type messageRow struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Profile   struct {
		Username string `json:"username"`
	} `json:"profile"`
}

func main() {
	limit := flag.Int("limit", 50, "Number of recent messages to display")
	follow := flag.Bool("follow", false, "Keep the feed open and print live messages")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	rows, err := fetchHistory(config.ServerURL, *limit)
	if err != nil {
		log.Fatalf("Failed to load history: %v", err)
	}

	renderTable(rows)

	if !*follow {
		return
	}
	if config.AuthToken == "" {
		log.Fatal("Follow mode requires CHAT_AUTH_TOKEN")
	}

	followFeed(config, rows)
}

func fetchHistory(serverURL string, limit int) ([]messageRow, error) {
	url := fmt.Sprintf("%s/api/messages?limit=%d", serverURL, limit)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var rows []messageRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func renderTable(rows []messageRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "Author", "Message"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, row := range rows {
		table.Append([]string{
			row.CreatedAt.Local().Format(time.TimeOnly),
			row.Profile.Username,
			row.Body,
		})
	}
	table.Render()
}

// followFeed subscribes to the live feed, seeding the timeline with the
// history so replayed rows print only once.
func followFeed(config Config, history []messageRow) {
	logger := logs.GetLoggerFromString(config.LogLevel)

	timeline := projection.NewTimeline()
	for _, row := range history {
		if message, err := toMessage(row.ID, row.AuthorID, row.Body, row.CreatedAt); err == nil {
			timeline.Insert(message)
		}
	}

	subscriber, err := client.NewSubscriber(config.ServerURL, config.AuthToken, logger)
	if err != nil {
		log.Fatalf("Failed to build subscriber: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := color.New(color.BgBlack, color.FgGreen).Render(" LIVE ")
	fmt.Printf("\n%s Following the room feed (Ctrl+C to quit)...\n", header)

	_ = subscriber.Listen(ctx, func(received client.Message) {
		message, err := toMessage(received.ID, received.AuthorID, received.Body, received.CreatedAt)
		if err != nil {
			return
		}
		if !timeline.Insert(message) {
			return
		}
		fmt.Printf("[%s] %s: %s\n",
			message.CreatedAt.Local().Format(time.TimeOnly),
			color.FgCyan.Render(received.Profile.Username),
			message.Body,
		)
	})
}

func toMessage(id, authorID, body string, createdAt time.Time) (chat.Message, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        parsed,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: createdAt,
		Room:      chat.DefaultRoom,
	}, nil
}
