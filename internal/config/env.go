package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv は環境変数から target の構造体を読み込みます。
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseEnvPrefix は全てのキーに prefix を付けて読み込みます。
func ParseEnvPrefix(target any, prefix string) error {
	if err := env.ParseWithOptions(target, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse env %s*: %w", prefix, err)
	}
	return nil
}
