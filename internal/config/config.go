// Package config loads the optional YAML configuration file and checks the
// dataset path the CLI and server read from.
//
// Settings come from, in order of precedence: command-line flags,
// environment variables, the YAML file, and flag defaults. The YAML file is
// plugged into kong as a resolver so every flag can also be set there:
//
//	bible: ~/bibles/kjv.json.xz
//	log-level: debug
//	serve:
//	  port: 8080
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/verbum/core/errors"
	"github.com/FocuswithJustin/verbum/internal/validation"
)

// DefaultPath returns ~/.config/verbum/config.yaml (or the platform
// equivalent). It returns "" when no user config directory is known.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "verbum", "config.yaml")
}

// YAML is a kong.ConfigurationLoader reading flag values from a YAML
// document. Keys match flag names with either "-" or "_"; flags of
// subcommands may also be nested under the command name.
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, &errors.ParseError{Format: "YAML", Message: err.Error(), Err: err}
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		// A set environment variable outranks the file.
		if flag.Tag != nil {
			for _, env := range flag.Tag.Envs {
				if _, ok := os.LookupEnv(env); ok {
					return nil, nil
				}
			}
		}
		return lookup(values, commandPath(parent), flag.Name), nil
	}
	return f, nil
}

// commandPath returns the names of the commands leading to parent.
func commandPath(parent *kong.Path) []string {
	var names []string
	if parent == nil {
		return nil
	}
	for n := parent.Node(); n != nil && n.Type != kong.ApplicationNode; n = n.Parent {
		names = append([]string{n.Name}, names...)
	}
	return names
}

func lookup(values map[string]any, commands []string, flag string) any {
	keys := []string{flag, strings.ReplaceAll(flag, "-", "_")}

	// Most specific first: serve.port before port.
	for depth := len(commands); depth >= 0; depth-- {
		scope := values
		ok := true
		for _, cmd := range commands[:depth] {
			next, isMap := scope[cmd].(map[string]any)
			if !isMap {
				ok = false
				break
			}
			scope = next
		}
		if !ok {
			continue
		}
		for _, k := range keys {
			if v, found := scope[k]; found {
				if _, isMap := v.(map[string]any); !isMap {
					return v
				}
			}
		}
	}
	return nil
}

// DatasetPath checks that path names a readable dataset whose content
// matches its extension and returns its absolute form.
func DatasetPath(path string) (string, error) {
	if err := validation.ValidatePath(path); err != nil {
		return "", errors.NewValidation("bible", err.Error())
	}

	abs, err := filepath.Abs(kong.ExpandPath(path))
	if err != nil {
		return "", errors.NewIO("resolve", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &errors.NotFoundError{Resource: "dataset", ID: abs, Err: err}
		}
		return "", errors.NewIO("open", abs, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.NewIO("stat", abs, err)
	}
	if info.IsDir() {
		return "", errors.NewValidation("bible", fmt.Sprintf("%s is a directory", abs))
	}

	if _, err := validation.ValidateDatasetContent(f, abs); err != nil {
		return "", errors.NewValidation("bible", err.Error())
	}
	return abs, nil
}
