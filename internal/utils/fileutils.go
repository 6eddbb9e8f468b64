package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadTextFile reads a file line by line to ensure it's text
func ReadTextFile(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			LogWarning("Failed to close file: %v", err)
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(f)
	// Narration scripts can carry long unterminated lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	LogDebug("Read %d lines from %s", len(lines), filePath)
	return strings.Join(lines, "\n"), nil
}

// WriteTextFile writes text to a file, ensuring it's written as text
func WriteTextFile(filePath string, content string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			LogWarning("Failed to close file: %v", err)
		}
	}()

	writer := bufio.NewWriter(f)
	if _, err := writer.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	LogDebug("Successfully wrote content to %s", filePath)
	return nil
}

// ExpandHomeDir expands a path if it starts with "~/"
func ExpandHomeDir(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
