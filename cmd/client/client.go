package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/eahydra/tftpd"
)

// Exit codes: 0 on success, 4 on a usage error (the same number as the
// "illegal TFTP operation" wire error code, §4.G), 1 on any other failure.
const (
	exitOK    = 0
	exitUsage = 4
	exitFail  = 1
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tftp-client <upload|download|delete> <filepath> <server-ipv4>")
}

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) != 3 {
		usage()
		return exitUsage
	}
	operation, filePath, serverAddr := args[0], args[1], args[2]
	if len(filePath) == 0 || len(filePath) > 256 {
		fmt.Fprintln(os.Stderr, "invalid filepath")
		return exitUsage
	}

	addr := serverAddr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = serverAddr + ":69"
	}

	client, err := gotftp.NewClient(addr, 5*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, "err:", err)
		return exitFail
	}
	defer client.Close()

	name := filepath.Base(filePath)

	switch operation {
	case "upload":
		f, err := os.Open(filePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "err:", err)
			return exitFail
		}
		defer f.Close()
		if err := client.Put(name, f); err != nil {
			fmt.Fprintln(os.Stderr, "err:", err)
			return exitFail
		}
	case "download":
		if _, err := os.Stat(name); err == nil {
			fmt.Fprintln(os.Stderr, "err: local file already exists:", name)
			return exitFail
		}
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "err:", err)
			return exitFail
		}
		if err := client.Get(name, f); err != nil {
			f.Close()
			os.Remove(name)
			fmt.Fprintln(os.Stderr, "err:", err)
			return exitFail
		}
		f.Close()
	case "delete":
		if err := client.Delete(name); err != nil {
			fmt.Fprintln(os.Stderr, "err:", err)
			return exitFail
		}
	default:
		usage()
		return exitUsage
	}

	return exitOK
}
