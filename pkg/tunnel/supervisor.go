package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tehzhed/portnord/pkg/logging"
)

// drainTimeout bounds how long a stopping tunnel waits for its in-flight
// proxied request before the listener is closed anyway.
const drainTimeout = 10 * time.Second

// RemoteStream is an open forward stream to a single pod port. Reads and
// writes carry raw bytes; Closed yields once when the remote side terminates
// the stream, with a nil error for a clean close.
type RemoteStream interface {
	io.ReadWriteCloser
	Closed() <-chan error
}

// StreamDialer opens forward streams through the cluster API.
type StreamDialer interface {
	DialPod(ctx context.Context, pod string, port int) (RemoteStream, error)
}

// DialerFunc adapts a function to the StreamDialer interface.
type DialerFunc func(ctx context.Context, pod string, port int) (RemoteStream, error)

func (f DialerFunc) DialPod(ctx context.Context, pod string, port int) (RemoteStream, error) {
	return f(ctx, pod, port)
}

// Supervisor establishes tunnels: it negotiates the forward stream, exposes
// it as a local HTTP proxy on the matching port and supervises the background
// goroutines until the tunnel's stop signal arrives.
type Supervisor struct {
	dialer StreamDialer
}

func NewSupervisor(dialer StreamDialer) *Supervisor {
	return &Supervisor{dialer: dialer}
}

// Start brings up a tunnel for service via pod:port. On success the returned
// Tunnel is Active and carries the cancellation handle; the caller is
// responsible for registering it. On failure no tunnel exists and the forward
// stream is closed.
func (s *Supervisor) Start(ctx context.Context, service, pod string, port int) (*Tunnel, error) {
	stream, err := s.dialer.DialPod(ctx, pod, port)
	if err != nil {
		return nil, err
	}

	// Same port locally as remotely: memorable 1:1 addressing.
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: %s", ErrPortInUse, addr)
	}

	t := newTunnel(service, pod, port)
	transport := newStreamTransport(stream)
	server := &http.Server{Handler: http.HandlerFunc(transport.proxy)}

	// Serve until Shutdown. Connection-level failures are logged, never
	// treated as process failures.
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.LogError("proxy server for %s:%d: %v", service, port, err)
		}
	}()

	// Watch for the remote end tearing the stream down mid-session. The
	// tunnel stays registered until the user stops it explicitly.
	go func() {
		select {
		case err := <-stream.Closed():
			if err != nil {
				logging.LogError("forward stream for %s:%d: %v", service, port, err)
			} else {
				logging.LogInfo("forward stream for %s:%d closed by remote", service, port)
			}
		case <-t.done:
		}
	}()

	// Shutdown sequence: stop accepting, let the in-flight request finish,
	// then release the stream and acknowledge.
	go func() {
		<-t.stop
		t.setState(StateStopping)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.LogError("shutting down proxy for %s:%d: %v", service, port, err)
		}
		if err := stream.Close(); err != nil {
			logging.LogDebug("closing forward stream for %s:%d: %v", service, port, err)
		}
		<-serveDone
		close(t.done)
		logging.LogInfo("tunnel stopped: %s:%d", service, port)
	}()

	t.setState(StateActive)
	logging.LogInfo("tunnel active: %s -> %s:%d on %s", service, pod, port, addr)
	return t, nil
}

// streamTransport drives HTTP/1.1 requests over the single shared forward
// stream. The mutex admits one proxied request at a time; concurrent local
// clients queue on it rather than being rejected.
type streamTransport struct {
	mu     sync.Mutex
	stream RemoteStream
	reader *bufio.Reader
}

func newStreamTransport(stream RemoteStream) *streamTransport {
	return &streamTransport{stream: stream, reader: bufio.NewReader(stream)}
}

// proxy forwards one inbound request over the stream unmodified and relays
// the response back verbatim. The lock is held until the response body has
// been copied in full, so the next request never interleaves with a half-read
// response on the shared stream.
func (st *streamTransport) proxy(w http.ResponseWriter, r *http.Request) {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := r.Clone(r.Context())
	out.RequestURI = ""
	if err := out.Write(st.stream); err != nil {
		logging.LogError("writing request to forward stream: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	resp, err := http.ReadResponse(st.reader, out)
	if err != nil {
		logging.LogError("reading response from forward stream: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	header := w.Header()
	for key, values := range resp.Header {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.LogError("relaying response body: %v", err)
	}
}
