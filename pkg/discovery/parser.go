package discovery

import (
	"strconv"
	"strings"
)

// ParseResponse parses an HTTP-style discovery response. The status line encodes readiness; header names are matched
// case-insensitively and the response tolerates either \r\n or bare \n line
// endings.
func ParseResponse(address string, data []byte) (*Console, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return nil, ErrMalformedResponse
	}

	code, err := statusCode(lines[0])
	if err != nil {
		return nil, err
	}

	headers := parseHeaders(lines[1:])

	c := &Console{
		Address:     address,
		DeviceName:  headers["host-name"],
		HostID:      headers["host-id"],
		RequestPort: DefaultRequestPort,
		IsReady:     readinessFromStatus(code) == PowerStateReady,
	}

	if p, ok := headers["host-request-port"]; ok {
		if port, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			c.RequestPort = port
		}
	}

	c.ConsoleType = deriveConsoleType(headers["host-type"], headers["system-version"])

	if state, ok := overrideState(headers); ok {
		c.IsReady = state == PowerStateReady
	}

	return c, nil
}

func statusCode(statusLine string) (int, error) {
	fields := strings.Fields(statusLine)
	if len(fields) < 2 {
		return 0, ErrMalformedResponse
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, ErrMalformedResponse
	}
	return code, nil
}

func parseHeaders(lines []string) map[string]string {
	headers := make(map[string]string)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		headers[key] = value
	}
	return headers
}

// readinessFromStatus classifies the status line: 200 is ready; 620 is
// standby; any other code in
// [200,500) is "responding therefore ready"; 5xx is also ready (service
// issue but awake); anything else defaults to unknown-but-awake, which
// this package treats as ready since the console responded at all.
func readinessFromStatus(code int) PowerState {
	if code == 620 {
		return PowerStateStandby
	}
	return PowerStateReady
}

// overrideState applies the header-based readiness override: host-state /
// ps-state / status / state / running-app, when present, take precedence
// over the status-code-based classification.
func overrideState(headers map[string]string) (PowerState, bool) {
	for _, key := range []string{"host-state", "ps-state", "status", "state", "running-app"} {
		v, ok := headers[key]
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "ready", "awake", "active", "on":
			return PowerStateReady, true
		case "standby", "sleep", "rest", "off":
			return PowerStateStandby, true
		}
	}
	return PowerStateUnknown, false
}

func deriveConsoleType(hostType, systemVersion string) ConsoleType {
	t := strings.ToLower(hostType)
	switch {
	case strings.Contains(t, "ps5") && strings.Contains(t, "digital"):
		return ConsoleTypePS5Digital
	case strings.Contains(t, "ps5"):
		return ConsoleTypePS5
	case strings.Contains(t, "ps4") && strings.Contains(t, "pro"):
		return ConsoleTypePS4Pro
	case strings.Contains(t, "ps4"):
		return ConsoleTypePS4
	default:
		return ConsoleTypeUnknown
	}
}
