package k8s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"

	"github.com/tehzhed/portnord/pkg/logging"
	"github.com/tehzhed/portnord/pkg/tunnel"
)

// ForwardStream is a live port-forward data stream to one pod port, carried
// over the API server's SPDY tunnel.
type ForwardStream struct {
	conn   httpstream.Connection
	data   httpstream.Stream
	closed chan error
}

func (s *ForwardStream) Read(p []byte) (int, error) {
	return s.data.Read(p)
}

func (s *ForwardStream) Write(p []byte) (int, error) {
	return s.data.Write(p)
}

// Close tears down the data stream and the underlying SPDY connection.
func (s *ForwardStream) Close() error {
	_ = s.data.Close()
	return s.conn.Close()
}

// Closed yields once when the forward terminates remotely; a nil error means
// a clean close.
func (s *ForwardStream) Closed() <-chan error {
	return s.closed
}

// watch reads the error stream to completion. The API server writes any
// forwarding failure there and closes it when the forward ends. Failures are
// wrapped so Closed() consumers can match them with errors.Is.
func (s *ForwardStream) watch(errorStream io.Reader) {
	message, err := io.ReadAll(errorStream)
	switch {
	case err != nil:
		s.closed <- fmt.Errorf("%w: reading error stream: %v", tunnel.ErrProtocol, err)
	case len(message) > 0:
		s.closed <- fmt.Errorf("%w: %s", tunnel.ErrProtocol, message)
	default:
		s.closed <- nil
	}
}

// DialPod opens a forward stream to pod:port using the port-forward
// protocol's v1 stream pair: one data stream plus one error stream on a
// single SPDY connection.
func (c *Client) DialPod(ctx context.Context, pod string, port int) (*ForwardStream, error) {
	reqURL := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(c.namespace).
		Name(pod).
		SubResource("portforward").
		URL()

	transport, upgrader, err := spdy.RoundTripperFor(c.restConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: creating SPDY round tripper: %v", ErrConnectivity, err)
	}
	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, reqURL)

	conn, protocol, err := dialer.Dial(portforward.PortForwardProtocolV1Name)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing pod %s: %v", ErrConnectivity, pod, err)
	}
	if protocol != portforward.PortForwardProtocolV1Name {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: unsupported port-forward protocol %q", ErrConnectivity, protocol)
	}

	headers := http.Header{}
	headers.Set(v1.StreamType, v1.StreamTypeError)
	headers.Set(v1.PortHeader, strconv.Itoa(port))
	headers.Set(v1.PortForwardRequestIDHeader, "0")
	errorStream, err := conn.CreateStream(headers)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: creating error stream for %s:%d: %v", ErrConnectivity, pod, port, err)
	}
	// Read-only stream; close the write half right away.
	_ = errorStream.Close()

	headers.Set(v1.StreamType, v1.StreamTypeData)
	dataStream, err := conn.CreateStream(headers)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: creating data stream for %s:%d: %v", ErrConnectivity, pod, port, err)
	}

	stream := &ForwardStream{conn: conn, data: dataStream, closed: make(chan error, 1)}
	go stream.watch(errorStream)
	logging.LogDebug("forward stream open to %s:%d", pod, port)
	return stream, nil
}
