package gotftp

import (
	"time"

	"gopkg.in/ini.v1"
)

// Config holds the server's tunables. Defaults match the reference: port
// 69, a 5 second per-datagram timeout, 3 retries, the CWD as root.
type Config struct {
	ListenAddr  string
	ReadTimeout time.Duration
	MaxRetries  int
	RootDir     string
	MetricsAddr string
	StrictTID   bool
}

// DefaultConfig returns the reference's defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":69",
		ReadTimeout: 5 * time.Second,
		MaxRetries:  MaxRetries,
		RootDir:     ".",
		MetricsAddr: "",
		StrictTID:   false,
	}
}

// LoadConfig reads an optional INI file (gotftp.ini by convention) and
// overlays its values on top of DefaultConfig. A missing file is not an
// error: the caller gets the defaults back.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, err
	}

	sec := f.Section("server")
	if v := sec.Key("listen_addr").String(); v != "" {
		cfg.ListenAddr = v
	}
	if v := sec.Key("read_timeout_seconds").MustInt(0); v > 0 {
		cfg.ReadTimeout = time.Duration(v) * time.Second
	}
	if v := sec.Key("max_retries").MustInt(0); v > 0 {
		cfg.MaxRetries = v
	}
	if v := sec.Key("root_dir").String(); v != "" {
		cfg.RootDir = v
	}
	if v := sec.Key("metrics_addr").String(); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.StrictTID = sec.Key("strict_tid").MustBool(cfg.StrictTID)

	return cfg, nil
}
