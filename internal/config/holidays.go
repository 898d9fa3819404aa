package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadHolidaysFromFile reads one 2006-01-02 date per line. Blank lines and
// lines starting with # are skipped.
func LoadHolidaysFromFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var holidays []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		holidays = append(holidays, line)
	}
	return holidays, scanner.Err()
}
