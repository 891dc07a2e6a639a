package utils

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Timeouts sized for a JSON API: requests are small and answered quickly,
// so anything slower than this is a stuck client.
const (
	serverReadTimeout  = 15 * time.Second
	serverWriteTimeout = 30 * time.Second
	serverIdleTimeout  = 120 * time.Second

	shutdownGrace = 30 * time.Second

	gracefulEnvKey = "IS_GRACEFUL"
	gracefulEnv    = gracefulEnvKey + "=1"
	// fd 3 is the first slot after stdin/stdout/stderr in the child's file table.
	gracefulListenerFd = 3
)

// GraceServer serves handler on addr and restarts in place on SIGUSR2:
// the listener fd is passed to a forked child so in-flight connections
// drain on the old process while the new one accepts. SIGTERM drains
// and exits.
func GraceServer(addr string, handler http.Handler) error {
	srv := &graceServer{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  serverReadTimeout,
			WriteTimeout: serverWriteTimeout,
			IdleTimeout:  serverIdleTimeout,
		},
		inherited:    os.Getenv(gracefulEnvKey) != "",
		signalChan:   make(chan os.Signal, 1),
		shutdownChan: make(chan struct{}),
	}
	return srv.listenAndServe()
}

type graceServer struct {
	httpServer *http.Server

	listener     net.Listener
	inherited    bool
	signalChan   chan os.Signal
	shutdownChan chan struct{}
}

func (srv *graceServer) listenAndServe() error {
	ln, err := srv.listen()
	if err != nil {
		return err
	}
	srv.listener = ln

	go srv.handleSignals()
	err = srv.httpServer.Serve(srv.listener)
	// Serve returns as soon as the listener closes; wait for Shutdown
	// to finish draining before letting main exit.
	<-srv.shutdownChan
	return err
}

// listen binds a fresh socket, or recovers the one inherited from the
// parent when this process was spawned by a graceful restart.
func (srv *graceServer) listen() (net.Listener, error) {
	if srv.inherited {
		ln, err := net.FileListener(os.NewFile(gracefulListenerFd, ""))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", srv.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", srv.httpServer.Addr, err)
	}
	return ln, nil
}

func (srv *graceServer) handleSignals() {
	signal.Notify(srv.signalChan, syscall.SIGTERM, syscall.SIGUSR2)

	for sig := range srv.signalChan {
		switch sig {
		case syscall.SIGTERM:
			Sugar.Info("SIGTERM received, draining HTTP server")
			srv.shutdown()
		case syscall.SIGUSR2:
			Sugar.Info("SIGUSR2 received, forking replacement process")
			pid, err := srv.forkChild()
			if err != nil {
				Sugar.Errorf("graceful restart failed, keeping current process: %v", err)
				continue
			}
			Sugar.Infof("replacement process started pid=%d, draining old server", pid)
			srv.shutdown()
		}
	}
}

func (srv *graceServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.httpServer.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown complete")
	}
	close(srv.shutdownChan)
}

// forkChild re-execs the binary with the listener socket as fd 3 and the
// graceful marker in the environment.
func (srv *graceServer) forkChild() (int, error) {
	tcpLn, ok := srv.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener is %T, want *net.TCPListener", srv.listener)
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("dup listener fd: %w", err)
	}

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if e != gracefulEnv {
			env = append(env, e)
		}
	}
	env = append(env, gracefulEnv)

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("forkexec: %w", err)
	}
	return pid, nil
}
