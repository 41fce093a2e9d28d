//go:build !windows

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"
	"time"
)

// Minimal stand-in for the dedicated server. Behaviour is steered by env:
//
//	FAKE_SILENT=1        print nothing
//	FAKE_NO_READY=1      never print the readiness banner
//	FAKE_IGNORE_TERM=1   ignore SIGTERM (forces a kill)
//	FAKE_EXIT_CODE=n     exit with n right after startup
//	FAKE_LINES=n         print n numbered lines before the banner
//	FAKE_ORPHAN=1        leave a child in its own session holding stdout
func main() {
	if os.Getenv("FAKE_SLEEPER") == "1" {
		time.Sleep(30 * time.Second)
		return
	}
	var cfgPath, entryPath string
	flag.StringVar(&cfgPath, "c", "", "server_cfg.ini path")
	flag.StringVar(&entryPath, "e", "", "entry_list.ini path")
	flag.Parse()

	silent := os.Getenv("FAKE_SILENT") == "1"
	if os.Getenv("FAKE_IGNORE_TERM") == "1" {
		signal.Ignore(syscall.SIGTERM)
	}
	sigs := make(chan os.Signal, 1)
	if os.Getenv("FAKE_IGNORE_TERM") != "1" {
		signal.Notify(sigs, syscall.SIGTERM, os.Interrupt)
	}

	if !silent {
		if _, err := os.Stat(cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "cannot read config %q: %v\n", cfgPath, err)
			os.Exit(2)
		}
		fmt.Printf("reading config %s\n", cfgPath)
		fmt.Printf("reading entry list %s\n", entryPath)
		fmt.Fprintln(os.Stderr, "no plugins configured")
		if n, err := strconv.Atoi(os.Getenv("FAKE_LINES")); err == nil {
			for i := 0; i < n; i++ {
				fmt.Printf("line %d\n", i)
			}
		}
	}
	if os.Getenv("FAKE_ORPHAN") == "1" {
		child := exec.Command(os.Args[0])
		child.Env = append(os.Environ(), "FAKE_SLEEPER=1")
		child.Stdout = os.Stdout
		child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := child.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "orphan: %v\n", err)
			os.Exit(2)
		}
		fmt.Printf("orphan pid %d\n", child.Process.Pid)
	}
	if code := os.Getenv("FAKE_EXIT_CODE"); code != "" {
		n, _ := strconv.Atoi(code)
		os.Exit(n)
	}
	if !silent && os.Getenv("FAKE_NO_READY") != "1" {
		fmt.Println("Server started")
	}

	select {
	case <-sigs:
		if !silent {
			fmt.Println("shutting down")
		}
		os.Exit(0)
	case <-time.After(5 * time.Minute):
		os.Exit(0)
	}
}
