package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/quayops/stevedore/internal/envs"
	"github.com/quayops/stevedore/internal/ui"
)

// parsePathValues splits repeated "component=value" flags into a map.
func parsePathValues(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		path, value, ok := strings.Cut(v, "=")
		if !ok || path == "" || value == "" {
			return nil, fmt.Errorf("invalid --%s value %q, expected component=value", flag, v)
		}
		out[path] = value
	}
	return out, nil
}

// releaseID generates a short unique id used to stage release configs.
func releaseID() string {
	return uuid.NewString()[:8]
}

// confirmProtected asks for interactive confirmation before touching a
// protected environment. Refuses when stdin is not a terminal.
func confirmProtected(settings *envs.Settings) error {
	if !settings.Protected {
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("environment %s is protected and requires interactive confirmation", settings.Name)
	}

	ui.Warning("Environment %s is protected.", settings.Name)
	fmt.Printf("Type the environment name to continue: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read confirmation: %w", err)
	}

	if strings.TrimSpace(line) != settings.Name {
		return fmt.Errorf("confirmation did not match %q, aborting", settings.Name)
	}
	return nil
}
