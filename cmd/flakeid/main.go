package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/zhukov-alex/flakeid/internal/app"
	"github.com/zhukov-alex/flakeid/internal/cleaner"
	"github.com/zhukov-alex/flakeid/internal/config"
)

func main() {
	log.SetFlags(log.Llongfile | log.Ldate | log.Ltime | log.Lmicroseconds)

	var cfgFile string
	cobra.OnInitialize(config.NewConfigInit(&cfgFile))

	root := &cobra.Command{
		Use:          "flakeid",
		Short:        "Snowflake id service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "Path to the configuration file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve ids over the configured transport",
			RunE:  app.ServeCmd,
		},
		&cobra.Command{
			Use:   "clean-journal",
			Short: "Remove old audit journal segments",
			RunE:  cleaner.CleanupCmd,
		},
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("command error: %v", err)
	}
}
