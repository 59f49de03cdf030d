package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrUnsafeConfig rejects a config file readable by other users; the
// file carries the connection password.
var ErrUnsafeConfig = errors.New("config file must not be group or world accessible")

// Config holds the connection parameters.  Missing values fall back to
// the environment the peer exports before starting the editor, then to
// the protocol defaults.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LoadConfig resolves the connection parameters: defaults, then the
// peer's environment, then the YAML file at path (which must be private
// to the user).
func LoadConfig(path string) (Config, error) {
	cfg := Config{Host: "localhost", Port: 3219, Password: "changeme"}

	if v := os.Getenv("__NETBEANS_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("__NETBEANS_SOCKET"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse __NETBEANS_SOCKET: %w", err)
		}
		cfg.Port = p
	}
	if v := os.Getenv("__NETBEANS_VIM_PASSWORD"); v != "" {
		cfg.Password = v
	}

	if path == "" {
		return cfg, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return cfg, err
	}
	if fi.Mode().Perm()&0o077 != 0 {
		return cfg, fmt.Errorf("%s: %w", path, ErrUnsafeConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
