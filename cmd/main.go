// FilePath: cmd/main.go
package main

import (
	"fmt"
	"log"
	"os"

	_ "github.com/aptsense/hub/docs"
	"github.com/aptsense/hub/internal/config"
	"github.com/aptsense/hub/internal/server"
	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

func main() {
	// Clear console and draw logo
	ClearConsole()
	DrawLogo()
	// Initialize version info
	nuts.InitVersion()
	nuts.L.Infof("[Main] Starting AptSense Hub Server v%s", nuts.GetVersion())

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create and start server
	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		nuts.L.Errorf("[Main] Server error: %v", err)
		os.Exit(1)
	}
}

// ClearConsole clears the console screen and draws the logo.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

func DrawLogo() {
	fmt.Println()
	lines := []string{
		"    ___         __  _____                     ",
		"   /   |  ____  / /_/ ___/___  ____  ________ ",
		"  / /| | / __ \\/ __/\\__ \\/ _ \\/ __ \\/ ___/ _ \\",
		" / ___ |/ /_/ / /_ ___/ /  __/ / / (__  )  __/",
		"/_/  |_/ .___/\\__//____/\\___/_/ /_/____/\\___/ ",
		"      /_/ ..................................  " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
