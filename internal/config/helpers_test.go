package config_test

import "os"

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func unsetenv(keys ...string) {
	for _, k := range keys {
		_ = os.Unsetenv(k)
	}
}
