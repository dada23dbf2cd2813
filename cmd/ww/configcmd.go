package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abelbrown/wikiwatch/internal/config"
)

func runConfig(args []string) error {
	fs := newFlagSet("config")
	initFile := fs.Bool("init", false, "Write the default config to the config path if none exists")
	path := fs.String("file", config.ConfigPath(), "Config file")
	asYAML := fs.Bool("yaml", false, "Print as YAML instead of JSON")
	if err := parseFlags(fs, args); err != nil {
		return errOrNil(err)
	}

	if *initFile {
		if _, err := os.Stat(*path); err == nil {
			return fmt.Errorf("%s already exists", *path)
		}
		if err := config.DefaultConfig().SaveTo(*path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *path)
		return nil
	}

	cfg, err := config.LoadFile(*path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	if *asYAML {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
	} else {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "\nwarning: %v\n", err)
	}
	if u, err := cfg.SubscriptionURL(); err == nil {
		fmt.Fprintf(os.Stderr, "\nsubscription: %s\n", u)
	}
	return nil
}
