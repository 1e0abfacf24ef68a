// Command registryctl registers agents, submits claims and reads account state
// on the agent registry programs.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("failed to load .env file")
	}

	err := rootCmd.ExecuteContext(context.Background())
	if env != nil {
		env.close(err)
	}
	if err != nil {
		os.Exit(1)
	}
}
