package config

import (
	"fmt"
	"os"
)

// WriteTemplate writes a commented starter config to path.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(Template), 0o600)
}

const Template = `# default chunk type for encode/decode/remove
chunk_type = "ruSt"

# zstd-compress hidden messages
compress = false

# environment variable holding the passphrase used to seal messages
passphrase_env = "PNGME_PASSPHRASE"

# refuse input files larger than this
max_input_bytes = 67108864

[server]
addr = ":9400"
cors_origins = ["http://localhost:3000"]
# proxies whose X-Forwarded-For is honored
trusted_proxies = ["127.0.0.1", "::1"]
max_body_bytes = 16777216

[log]
level = "info"
`
