package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LoadEnvFile sets variables from a .env file without overriding variables
// already present in the environment.
func LoadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	vars, err := parseEnvFile(file)
	if err != nil {
		return err
	}
	for _, kv := range vars {
		if _, exists := os.LookupEnv(kv[0]); exists {
			continue
		}
		if err := os.Setenv(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func loadDiscoveredEnvFile(log *zap.Logger) {
	path, err := findEnvFile()
	if err != nil {
		log.Warn("failed to locate .env", zap.Error(err))
		return
	}
	if path == "" {
		log.Debug(".env not found in current or parent directories")
		return
	}
	if err := LoadEnvFile(path); err != nil {
		log.Warn("failed to load env file", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("loaded env file", zap.String("path", path))
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

// parseEnvFile returns KEY=VALUE pairs in file order. Blank lines, comments
// and lines without '=' are skipped; an "export " prefix and matching
// quotes are stripped.
func parseEnvFile(r io.Reader) ([][2]string, error) {
	var out [][2]string
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, [2]string{key, trimQuotes(strings.TrimSpace(value))})
	}
	return out, scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
