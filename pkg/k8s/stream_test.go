package k8s

import (
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tehzhed/portnord/pkg/tunnel"
)

func TestForwardStreamWatchClassifiesRemoteFailure(t *testing.T) {
	s := &ForwardStream{closed: make(chan error, 1)}
	s.watch(strings.NewReader("error forwarding port 8080 to pod"))

	err := <-s.closed
	require.Error(t, err)
	assert.ErrorIs(t, err, tunnel.ErrProtocol)
	assert.Contains(t, err.Error(), "error forwarding port 8080")
}

func TestForwardStreamWatchClassifiesReadFailure(t *testing.T) {
	s := &ForwardStream{closed: make(chan error, 1)}
	s.watch(iotest.ErrReader(assert.AnError))

	err := <-s.closed
	require.Error(t, err)
	assert.ErrorIs(t, err, tunnel.ErrProtocol)
}

func TestForwardStreamWatchCleanClose(t *testing.T) {
	s := &ForwardStream{closed: make(chan error, 1)}
	s.watch(strings.NewReader(""))

	assert.NoError(t, <-s.closed)
}
