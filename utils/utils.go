package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Commands lists the recognized sub-commands
var Commands = []string{"import", "optimize", "placeholders", "lookup", "report"}

// ParseArguments converts command-line arguments (without the program name)
// into a map of flags and values. The first recognized command is stored
// under the "command" key.
func ParseArguments(argv []string) map[string]string {
	args := make(map[string]string)

	commandIndex := -1
	for i, a := range argv {
		if isCommand(a) {
			args["command"] = a
			commandIndex = i
			break
		}
	}

	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			flagName := strings.TrimPrefix(parts[0], "--")
			args[flagName] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Boolean flag when no value follows
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

func isCommand(s string) bool {
	for _, c := range Commands {
		if s == c {
			return true
		}
	}
	return false
}

// GetDefaultDatabasePath returns the default path for the run ledger
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		return "image-runs.db"
	}
	return filepath.Join(filepath.Dir(exePath), "image-runs.db")
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	fmt.Printf("Usage:\n")
	fmt.Printf("  %s import [--mapping=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s optimize [--workers=N] [--prober=vips|exiftool] [--watch] [--database=PATH] [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s placeholders [--debug] [--logfile=PATH]\n", os.Args[0])
	fmt.Printf("  %s lookup --key=REL_PATH | --list\n", os.Args[0])
	fmt.Printf("  %s report [--limit=N] [--database=PATH]\n", os.Args[0])
	fmt.Printf("\nParameters:\n")
	fmt.Printf("  --mapping   : YAML import table replacing the built-in one\n")
	fmt.Printf("  --workers   : Number of images optimized in parallel (default: CPU based)\n")
	fmt.Printf("  --prober    : Metadata reader, vips or exiftool (default: vips)\n")
	fmt.Printf("  --watch     : Re-run the optimizer whenever source images change\n")
	fmt.Printf("  --database  : Path to run ledger (default: %s)\n", GetDefaultDatabasePath())
	fmt.Printf("  --key       : Manifest key to resolve, e.g. rooms/standard-ground-1.jpg\n")
	fmt.Printf("  --list      : Print every key in the manifest\n")
	fmt.Printf("  --limit     : Number of runs to list (default: 10)\n")
	fmt.Printf("  --debug     : Enable debug mode (logs detailed information)\n")
	fmt.Printf("  --logfile   : Specify custom log file path (default: image-pipeline.log)\n")
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  %s import\n", os.Args[0])
	fmt.Printf("  %s optimize --workers=4 --debug\n", os.Args[0])
	fmt.Printf("  %s lookup --key=rooms/standard-ground-1.jpg\n", os.Args[0])
}

// ParsePositiveInt parses a flag value that must be a positive integer
func ParsePositiveInt(name, value string, fallback int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback, fmt.Errorf("Invalid %s value '%s', using default (%d)", name, value, fallback)
	}
	return n, nil
}

// FormatBytes renders a byte count for console output
func FormatBytes(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}
