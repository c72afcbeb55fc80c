package platform

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// idleProvider reads HIDIdleTime from the IOHIDSystem registry entry.
type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command("ioreg", "-c", "IOHIDSystem", "-d", "4", "-k", "HIDIdleTime").Output()
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}
		separator := strings.LastIndex(line, "=")
		if separator < 0 {
			continue
		}
		value := strings.TrimSpace(line[separator+1:])
		idleNanos, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
		}
		if idleNanos < 0 {
			idleNanos = 0
		}
		return time.Duration(idleNanos), nil
	}

	return 0, fmt.Errorf("HIDIdleTime not present in ioreg output")
}
