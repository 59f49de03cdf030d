// Command extedit connects an in-memory reference editor to an
// external development tool speaking the editor-integration socket
// protocol.  It dials the tool, performs the handshake and serves the
// session until the tool disconnects or the process is signalled.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/cptaffe/extedit/editor"
	"github.com/cptaffe/extedit/internal/session"
	"github.com/cptaffe/extedit/logger"
)

func main() {
	configPath := flag.String("config", "", "YAML connection file (host, port, password)")
	addr := flag.String("addr", "", "host:port of the tool, overrides config")
	password := flag.String("password", "", "shared secret, overrides config")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	var err error
	var l *zap.Logger
	if *verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	zap.ReplaceGlobals(l)
	defer l.Sync() //nolint:errcheck

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		l.Fatal("load config", zap.String("path", *configPath), zap.Error(err))
	}
	if *addr != "" {
		host, port, err := net.SplitHostPort(*addr)
		if err != nil {
			l.Fatal("parse -addr", zap.String("addr", *addr), zap.Error(err))
		}
		cfg.Host = host
		if cfg.Port, err = strconv.Atoi(port); err != nil {
			l.Fatal("parse -addr port", zap.String("addr", *addr), zap.Error(err))
		}
	}
	if *password != "" {
		cfg.Password = *password
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.NewContext(ctx, l)

	// The tool may not be listening yet when we start.
	var conn net.Conn
	dial := func() error {
		d := net.Dialer{Timeout: 5 * time.Second}
		c, err := d.DialContext(ctx, "tcp", cfg.Addr())
		if err != nil {
			l.Info("dial", zap.String("addr", cfg.Addr()), zap.Error(err))
			return err
		}
		conn = c
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10), ctx)
	if err := backoff.Retry(dial, bo); err != nil {
		l.Fatal("connect", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	l.Info("connected", zap.String("addr", cfg.Addr()))

	ed := editor.NewMemory()
	// Quit commands from the peer end the process.
	ed.ExecHook = func(command string) error {
		if command == "qall!" || command == "confirm qall" {
			stop()
		}
		return nil
	}

	s := session.New(ctx, ed, session.NewSignRegistry())
	if err := s.Attach(conn, cfg.Password); err != nil {
		l.Fatal("handshake", zap.Error(err))
	}

	// A signal must unblock the read loop below.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	// The session is single-threaded: this loop is the only goroutine
	// that touches it.
	buf := make([]byte, 4096)
	for s.State() != session.Disconnected {
		n, err := conn.Read(buf)
		if n > 0 {
			s.Receive(buf[:n])
			s.Drain()
		}
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				l.Error("read", zap.Error(err))
			}
			break
		}
	}

	if s.State() != session.Disconnected {
		if ctx.Err() != nil {
			// We are quitting: tell the tool the buffers are gone.
			if err := s.Close(true); err != nil {
				l.Warn("close session", zap.Error(err))
			}
		} else {
			s.ConnClosed()
		}
	}
	l.Info("session ended")
}
