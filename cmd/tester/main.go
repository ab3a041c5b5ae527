// tester mints a development session token so viewer and scripted
// clients can connect to a local server without a real sign-in flow.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"moonchat/auth"
)

type Config struct {
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
}

func main() {
	userID := flag.String("user", "dev-user", "User id to embed in the token")
	username := flag.String("name", "Dev", "Display name to embed in the token")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	token, err := auth.GenerateToken([]byte(config.AuthSecret), *userID, *username, config.AuthTokenDuration)
	if err != nil {
		log.Fatalf("Token generation failed: %v", err)
	}

	fmt.Println(token)
}
