package ui

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Prompter reads interactive answers from a terminal.
type Prompter struct {
	reader *bufio.Reader
}

// NewPrompter creates a prompter reading from stdin.
func NewPrompter() *Prompter {
	return &Prompter{reader: bufio.NewReader(os.Stdin)}
}

// IsInteractive checks if stdin is a terminal.
func IsInteractive() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// ReadValue prompts for input with an optional default.
func (p *Prompter) ReadValue(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", prompt, defaultValue)
	} else {
		fmt.Printf("%s: ", prompt)
	}

	input, err := p.reader.ReadString('\n')
	if err != nil {
		return defaultValue
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// Confirm asks a yes/no question, defaulting to no.
func (p *Prompter) Confirm(question string) bool {
	answer := p.ReadValue(question+" (y/N)", "n")
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// SelectString presents a numbered list with substring filtering and
// returns the chosen item, or empty string if the selection was cancelled.
// Typing a number selects; typing anything else narrows the list.
func (p *Prompter) SelectString(message string, items []string) string {
	if len(items) == 0 {
		return ""
	}

	filtered := append([]string(nil), items...)
	sort.Strings(filtered)

	for {
		fmt.Println()
		fmt.Println(message)
		for i, item := range filtered {
			fmt.Printf("  %2d) %s\n", i+1, item)
		}

		input := p.ReadValue("Number to select, text to filter, empty to cancel", "")
		if input == "" {
			return ""
		}

		if n, err := strconv.Atoi(input); err == nil {
			if n >= 1 && n <= len(filtered) {
				return filtered[n-1]
			}
			Errorf("no item %d", n)
			continue
		}

		var narrowed []string
		for _, item := range items {
			if strings.Contains(strings.ToLower(item), strings.ToLower(input)) {
				narrowed = append(narrowed, item)
			}
		}
		if len(narrowed) == 0 {
			Warnf("no match for %q", input)
			continue
		}
		sort.Strings(narrowed)
		filtered = narrowed
	}
}

// SelectFolder lists the directories under basePath and lets the user pick
// one. Returns the folder name, or empty string if cancelled.
func (p *Prompter) SelectFolder(basePath string) (string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", basePath, err)
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			folders = append(folders, e.Name())
		}
	}
	if len(folders) == 0 {
		return "", fmt.Errorf("no project folders found in %s", basePath)
	}

	return p.SelectString("Select a project folder:", folders), nil
}
