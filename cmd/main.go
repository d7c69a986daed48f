package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("trivia-service exited")
		os.Exit(1)
	}
}
