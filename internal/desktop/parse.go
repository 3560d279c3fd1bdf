package desktop

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopEntry is the subset of a .desktop file the launcher needs.
type desktopEntry struct {
	ID        string
	Name      string
	Exec      string
	Icon      string
	File      string
	NoDisplay bool
}

// fileID is the desktop file ID: the base name without the extension.
func fileID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".desktop")
}

// parseDesktopFile reads the [Desktop Entry] group of a .desktop file.
func parseDesktopFile(path string) (desktopEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return desktopEntry{}, err
	}
	defer file.Close()

	entry := desktopEntry{ID: fileID(path), File: path}
	inMain := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inMain = line == "[Desktop Entry]"
			continue
		}
		if !inMain {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"")

		switch key {
		case "Name":
			entry.Name = value
		case "Exec":
			entry.Exec = value
		case "Icon":
			entry.Icon = value
		case "Type":
			if value != "Application" {
				entry.NoDisplay = true
			}
		case "NoDisplay", "Hidden":
			if strings.EqualFold(value, "true") {
				entry.NoDisplay = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return desktopEntry{}, err
	}

	if entry.Name == "" || entry.Exec == "" {
		return desktopEntry{}, fmt.Errorf("invalid desktop file %s: missing Name or Exec", path)
	}
	return entry, nil
}

// execArgs splits an Exec value into argv, dropping field codes such as %u
// and %F and unescaping %%.
func execArgs(exec string) []string {
	var args []string
	for _, field := range strings.Fields(exec) {
		if len(field) == 2 && field[0] == '%' && field[1] != '%' {
			continue
		}
		field = strings.ReplaceAll(field, "%%", "%")
		args = append(args, strings.Trim(field, "\""))
	}
	return args
}
