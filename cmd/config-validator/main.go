package main

import (
	"fmt"
	"os"

	"github.com/chess10kp/vibe/internal/config"
)

func main() {
	configPath := config.DefaultPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	fmt.Printf("Validating config: %s\n", configPath)

	cfg, err := config.LoadAndValidateConfig(configPath)
	if err != nil {
		fmt.Printf("❌ Config validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Config is valid!")
	fmt.Printf("   store: %s (%s)\n", cfg.Store.Backend, cfg.Store.Path)
	for _, p := range cfg.Directory.Profiles {
		primary := ""
		if p.ID == cfg.Directory.PrimaryProfile {
			primary = " (primary)"
		}
		fmt.Printf("   profile %s%s: %d application dirs\n", p.ID, primary, len(p.ApplicationDirs))
	}
}
