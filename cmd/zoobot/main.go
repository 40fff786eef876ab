// Command zoobot trains Dirichlet-multinomial vote-prediction models
// on galaxy morphology catalogs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:           "zoobot",
		Short:         "Galaxy morphology vote prediction trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTrainCmd(), newSchemaCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zoobot: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the console logger all commands share.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}
