package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oarkflow/ability"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "validate":
		handleValidate()
	case "convert":
		handleConvert()
	case "check":
		handleCheck()
	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ability-config - Configuration tool for ability rule sets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ability-config validate <file>           - Validate a rule configuration")
	fmt.Println("  ability-config convert <input> <output>  - Convert between formats")
	fmt.Println("  ability-config check <file> [flags]      - Evaluate a decision against the config")
	fmt.Println()
	fmt.Println("Supported formats: .yaml, .yml, .json")
}

func handleValidate() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ability-config validate <file>")
		os.Exit(1)
	}
	cfg, err := loadConfig(os.Args[2])
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %d rules\n", len(cfg.Rules))
}

func handleConvert() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: ability-config convert <input> <output>")
		os.Exit(1)
	}
	cfg, err := loadConfig(os.Args[2])
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	out := os.Args[3]
	var data []byte
	switch strings.ToLower(filepath.Ext(out)) {
	case ".yaml", ".yml":
		data, err = cfg.ToYAML()
	case ".json":
		data, err = cfg.ToJSON()
	default:
		fmt.Printf("Unsupported output format: %s\n", out)
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("Error encoding config: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Printf("Error writing %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", out)
}

func handleCheck() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: ability-config check <file> -user <id> -role <id> -action <a> -subject <s> [-resource <json>]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	userID := fs.Int64("user", 0, "user id")
	roleID := fs.Int64("role", 0, "role id")
	action := fs.String("action", "", "action to check")
	subject := fs.String("subject", "", "subject to check")
	resourceJSON := fs.String("resource", "", "resource instance as JSON")
	_ = fs.Parse(os.Args[3:])

	cfg, err := loadConfig(os.Args[2])
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	checker, err := cfg.Checker()
	if err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	var resource map[string]any
	if *resourceJSON != "" {
		if err := json.Unmarshal([]byte(*resourceJSON), &resource); err != nil {
			fmt.Printf("Invalid resource JSON: %v\n", err)
			os.Exit(1)
		}
	}

	dec, err := checker.Explain(context.Background(), *userID, *roleID, *action, *subject, resource)
	if err != nil {
		fmt.Printf("Check failed: %v\n", err)
		os.Exit(1)
	}
	for _, line := range dec.Trace {
		fmt.Println("  " + line)
	}
	if dec.Allowed {
		fmt.Println("ALLOW")
		return
	}
	fmt.Println("DENY")
	os.Exit(2)
}

func loadConfig(path string) (*ability.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loader := ability.NewConfigLoader()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loader.LoadYAML(data)
	case ".json":
		return loader.LoadJSON(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", path)
	}
}
