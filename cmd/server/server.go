package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/eahydra/tftpd"
	log "github.com/sirupsen/logrus"
)

// fileHandler implements gotftp.FileHandler against a root directory on the
// local filesystem. The remote address is accepted but unused here; it
// exists so a handler could scope storage per client if it needed to.
type fileHandler struct {
	root string
}

func (h *fileHandler) path(name string) string {
	return filepath.Join(h.root, filepath.FromSlash(name))
}

func (h *fileHandler) ReadFile(remoteAddr, fileName string) (io.ReadCloser, error) {
	return os.OpenFile(h.path(fileName), os.O_RDONLY, 0644)
}

func (h *fileHandler) WriteFile(remoteAddr, fileName string) (io.WriteCloser, error) {
	return os.OpenFile(h.path(fileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

func (h *fileHandler) IsFileExist(remoteAddr, fileName string) (bool, error) {
	_, err := os.Stat(h.path(fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (h *fileHandler) DeleteFile(remoteAddr, fileName string) error {
	err := os.Remove(h.path(fileName))
	if err != nil && os.IsNotExist(err) {
		return err
	}
	return err
}

// dropPrivileges resolves the invoking (sudo) user and drops the process
// from root to that identity, grounded on the reference's drop_privileges:
// SUDO_USER if set, else the current effective user; POSIX setgid/setuid.
func dropPrivileges() error {
	name := os.Getenv("SUDO_USER")
	var u *user.User
	var err error
	if name != "" {
		u, err = user.Lookup(name)
	} else {
		u, err = user.Current()
	}
	if err != nil {
		return fmt.Errorf("resolve target user: %w", err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}
	if uid == 0 {
		return nil
	}
	if err := syscall.Setgid(gid); err != nil {
		return fmt.Errorf("setgid(%d): %w", gid, err)
	}
	if err := syscall.Setuid(uid); err != nil {
		return fmt.Errorf("setuid(%d): %w", uid, err)
	}
	return nil
}

func main() {
	var (
		configPath  = flag.String("config", "./gotftp.ini", "path to the server's INI config file")
		addr        = flag.String("addr", "", "override: listen address (e.g. :69)")
		timeout     = flag.Int("timeout", 0, "override: per-datagram read timeout in seconds")
		retries     = flag.Int("retries", 0, "override: max retries per block")
		root        = flag.String("root", "", "override: root directory served")
		metricsAddr = flag.String("metrics", "", "override: Prometheus exporter listen address (empty disables it)")
		strictTID   = flag.Bool("strict-tid", false, "reject datagrams from a peer address other than the one that sent the request")
		verbose     = flag.Bool("v", false, "enable verbose (debug) logging")
	)
	flag.Parse()

	gotftp.EnableVerbose(*verbose)

	cfg, err := gotftp.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Warn("failed to load config file, using defaults")
		cfg = gotftp.DefaultConfig()
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *timeout > 0 {
		cfg.ReadTimeout = time.Duration(*timeout) * time.Second
	}
	if *retries > 0 {
		cfg.MaxRetries = *retries
	}
	if *root != "" {
		cfg.RootDir = *root
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *strictTID {
		cfg.StrictTID = true
	}

	metrics := gotftp.NewMetrics()

	srv, err := gotftp.NewServer(cfg, &fileHandler{root: cfg.RootDir}, metrics)
	if err != nil {
		log.WithError(err).Fatal("failed to bind listen address")
	}

	if err := dropPrivileges(); err != nil {
		log.WithError(err).Fatal("failed to drop privileges")
	}

	if cfg.MetricsAddr != "" {
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("serving metrics")
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.WithError(err).Error("metrics exporter stopped")
			}
		}()
	}

	log.WithField("addr", cfg.ListenAddr).WithField("root", cfg.RootDir).Info("serving")
	if err := srv.Run(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
