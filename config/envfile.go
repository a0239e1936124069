package config

import (
	"fmt"
	"os"
	"strings"
)

// EnvLine is one KEY=value pair from an env file.
type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

func dequote(s string) string {
	v := s
	if strings.HasPrefix(v, "'") && strings.HasSuffix(v, "'") {
		v = strings.Trim(v, "'")
	} else if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = strings.Trim(v, `"`)
	}
	return v
}

// ProcessEnvLine splits a KEY=value line, dequoting the value.
func ProcessEnvLine(env string) EnvLine {
	tok := strings.SplitN(env, "=", 2)
	if len(tok) < 2 {
		return EnvLine{Key: env, Val: ""}
	}
	return EnvLine{Key: tok[0], Val: dequote(tok[1])}
}

// ParseEnvFile parses an environment file into key/value pairs. A missing
// file is not an error — it parses as empty. Blank lines and # comments are
// skipped.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return []EnvLine{}, nil
	}
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	envs := make([]EnvLine, 0)
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		env := ProcessEnvLine(line)
		if env.Key != "" {
			envs = append(envs, env)
		}
	}
	return envs, nil
}

// ApplyEnvFile loads an env file into the process environment. Variables
// already set in the environment win over the file.
func ApplyEnvFile(filename string) error {
	envs, err := ParseEnvFile(filename)
	if err != nil {
		return fmt.Errorf("config: load env file %s: %w", filename, err)
	}
	for _, env := range envs {
		if _, exists := os.LookupEnv(env.Key); !exists {
			os.Setenv(env.Key, env.Val)
		}
	}
	return nil
}
