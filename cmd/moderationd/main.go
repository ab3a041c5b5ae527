// moderationd is the development moderation provider: a small HTTP
// service exposing the classify contract the chat server calls. It
// matches against embedded word lists and can simulate latency so the
// composer's timeout paths are reachable locally.
package main

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/abadojack/whatlanggo"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"moonchat/internal/logs"
	"moonchat/moderation/lexicon"
)

//go:embed censored/*
var censoredFolder embed.FS

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type Config struct {
	Host             string        `env:"MODERATION_HOST,default=0.0.0.0"`
	Port             int           `env:"MODERATION_PORT,default=9090"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO"`
	SimulatedLatency time.Duration `env:"SIMULATED_LATENCY,default=0s"`
}

type classifyRequest struct {
	Message string `json:"message"`
}

type classifyResponse struct {
	IsProfanity bool `json:"isProfanity"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Moderation provider terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	data, err := lexicon.NewLoader(censoredFolder).LoadAll("censored")
	if err != nil {
		return exitRuntime, fmt.Errorf("word list loading failed: %w", err)
	}

	matcher, err := lexicon.NewMatcher(data.Words)
	if err != nil {
		return exitRuntime, fmt.Errorf("matcher build failed: %w", err)
	}

	logger.Info("Lexicon loaded",
		"words", len(data.Words), "languages", data.Languages)

	router := mux.NewRouter()
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if config.SimulatedLatency > 0 {
			time.Sleep(config.SimulatedLatency)
		}

		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		profane, found := matcher.Detect(req.Message)
		info := whatlanggo.Detect(req.Message)

		if profane {
			logger.Warn("Profanity detected",
				"lang", info.Lang.Iso6391(), "words", found)
		} else {
			logger.Debug("Message clean", "lang", info.Lang.Iso6391())
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(classifyResponse{IsProfanity: profane})
	}).Methods(http.MethodPost)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	logger.Info("Starting moderation provider", "address", address)
	if err := http.ListenAndServe(address, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return exitRuntime, err
	}
	return exitOK, nil
}
