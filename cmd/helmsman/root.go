package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "helmsman",
	Short: "Helmsman routes natural-language queries to capability handlers",
	Long: `Helmsman classifies each incoming query into a capability category
(calculator, knowledge base, web search, datetime, or direct answer),
dispatches it to the matching handler, and guards both sides of the
exchange.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
