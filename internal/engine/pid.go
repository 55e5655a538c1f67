package engine

import (
	"os"
	"strconv"
	"strings"
)

// PIDFile records the PID of a running worker daemon.
type PIDFile string

func (p PIDFile) Write(pid int) error {
	return os.WriteFile(string(p), []byte(strconv.Itoa(pid)), 0644)
}

func (p PIDFile) Read() (int, error) {
	b, err := os.ReadFile(string(p))
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}

func (p PIDFile) Remove() {
	_ = os.Remove(string(p))
}
