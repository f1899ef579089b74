// cmd/assay/main.go
//
// Entry point for the assay CLI. Running `assay` in a project directory
// initializes the .assay folder (config, agents, decks, logs, results) and
// starts the interactive assessment builder.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jcrafford/assay/internal/config"
	"github.com/jcrafford/assay/internal/tui"
)

func main() {
	offline := flag.Bool("offline", false, "use the built-in scripted generator instead of the configured provider command")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitAssayDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .assay directory: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.NewApp(cwd, *offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting assay: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
