package configuration

import (
	"bufio"
	"os"
	"strings"
)

// LoadEnvFromFile applies KEY=VALUE pairs from the given files to the process
// environment. Variables already set stay untouched, so deployment secrets
// always win over checked-in defaults. Missing files are skipped.
func LoadEnvFromFile(paths ...string) {
	for _, p := range paths {
		applyEnvFile(p)
	}
}

func applyEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, val, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, val)
		}
	}
}

// parseEnvLine accepts KEY=VALUE with optional quotes and an optional
// "export " prefix. Blank lines and # comments report ok=false.
func parseEnvLine(line string) (key, val string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, val, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	val = strings.Trim(strings.TrimSpace(val), `"'`)
	return key, val, true
}
