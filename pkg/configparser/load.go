package configparser

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadAndParseYaml loads the YAML file into the environment and then fills cfg from it.
// A missing file is not an error: env variables and defaults are used alone.
func LoadAndParseYaml(filepath string, cfg any) error {
	if err := LoadYamlFile(filepath); err != nil && !errors.Is(err, os.ErrNotExist) && !errors.Is(err, ErrNoFilePath) {
		return err
	}
	return ParseEnv(cfg)
}

// LoadYamlFile reads a YAML file and exports every scalar as an environment variable.
// Nested keys are joined with "_" and upper-cased: database.host -> DATABASE_HOST.
// Sequences become comma separated values. Variables already set are left untouched,
// values of the form ${VAR:-default} are resolved against the environment.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	vars := make(map[string]string)
	flatten("", root, vars)

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, substitute(vars[key])); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	return nil
}

func flatten(prefix string, node any, out map[string]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			flatten(joinKey(prefix, k), child, out)
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		// "key:" without value
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func joinKey(prefix, key string) string {
	key = strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

// substitute resolves ${VAR:-default} and ${VAR}.
func substitute(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, _ := strings.Cut(inner, ":-")
	if env := os.Getenv(strings.TrimSpace(name)); env != "" {
		return env
	}
	return strings.TrimSpace(def)
}
