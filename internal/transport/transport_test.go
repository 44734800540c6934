package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type collector struct {
	mu   sync.Mutex
	vals []float64
}

func (c *collector) sink(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals = append(c.vals, v)
}

func (c *collector) snapshot() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.vals...)
}

func TestStreamRoundTripOverPipe(t *testing.T) {
	client, server := net.Pipe()
	var got collector
	done := make(chan error, 1)
	go func() { done <- ServeStream(context.Background(), server, got.sink, quiet) }()

	s := NewStreamSender(client)
	for _, v := range []float64{220, 261.626, 440} {
		require.NoError(t, s.Send(v))
	}
	_, err := client.Write([]byte("garbage\n"))
	require.NoError(t, err)
	require.NoError(t, s.Send(330))
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver did not return after EOF")
	}
	assert.Equal(t, []float64{220, 261.63, 440, 330}, got.snapshot())
}

func TestServeStreamStopsOnCancel(t *testing.T) {
	_, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeStream(ctx, server, func(float64) {}, quiet) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("receiver ignored cancellation")
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestServeStreamReturnsResetErrors(t *testing.T) {
	reset := errors.New("connection reset")
	err := ServeStream(context.Background(), failingReader{reset}, func(float64) {}, quiet)
	assert.ErrorIs(t, err, reset)
}

func TestStreamSenderWriteError(t *testing.T) {
	client, server := net.Pipe()
	require.NoError(t, server.Close())
	err := NewStreamSender(client).Send(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1.00")
}

func TestDatagramRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pc, err := ListenPacket(ctx, "udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	var got collector
	done := make(chan error, 1)
	go func() { done <- ServeDatagrams(ctx, pc, got.sink, quiet) }()

	s, err := Dial(ctx, Endpoint{Network: "udp", Address: pc.LocalAddr().String()}, quiet)
	require.NoError(t, err)
	defer s.Close()

	require.IsType(t, &DatagramSender{}, s)
	require.NoError(t, s.Send(220))
	_, err = s.(*DatagramSender).conn.Write([]byte("not-a-number"))
	require.NoError(t, err)
	require.NoError(t, s.Send(440.5))

	assert.Eventually(t, func() bool { return len(got.snapshot()) == 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{220, 440.5}, got.snapshot())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("datagram receiver ignored cancellation")
	}
}

func TestListenOneAndDialTCP(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var lc net.ListenConfig
	spare, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := spare.Addr().String()
	require.NoError(t, spare.Close())

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ListenOne(ctx, "tcp", addr, quiet)
		if err == nil {
			accepted <- conn
		}
		close(accepted)
	}()

	var s Sender
	require.Eventually(t, func() bool {
		s, err = Dial(ctx, Endpoint{Network: "tcp", Address: addr}, quiet)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	conn, ok := <-accepted
	require.True(t, ok)
	defer conn.Close()

	var got collector
	done := make(chan error, 1)
	go func() { done <- ServeStream(ctx, conn, got.sink, quiet) }()

	require.NoError(t, s.Send(123.456))
	require.NoError(t, s.Close())
	require.NoError(t, <-done)
	assert.Equal(t, []float64{123.46}, got.snapshot())
}

func TestListenOneCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := ListenOne(ctx, "tcp", "127.0.0.1:0", quiet)
		errc <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("accept ignored cancellation")
	}
}

func TestDialUnknownNetwork(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{Network: "carrier-pigeon"}, quiet)
	assert.ErrorIs(t, err, ErrUnknownNetwork)
}

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "tcp://127.0.0.1:8080", Endpoint{Network: "tcp", Address: "127.0.0.1:8080"}.String())
}
