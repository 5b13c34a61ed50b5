package email

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeConn struct {
	sendFn func() error
	closed atomic.Bool
}

func (c *fakeConn) Send(...*mail.Msg) error {
	if c.sendFn != nil {
		return c.sendFn()
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeDialer struct {
	mu     sync.Mutex
	conns  []*fakeConn
	err    error
	sendFn func() error
}

func (d *fakeDialer) dial(ctx context.Context) (smtpConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{sendFn: d.sendFn}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() DispatcherConfig {
	cfg := DefaultDispatcherConfig(Provider{Name: "test", Host: "localhost", Port: 1025})
	cfg.RateLimit = 0
	return cfg
}

func testMessage() *Message {
	return &Message{
		From:    Address{Name: "SHRIMPTECH", Email: "noreply@shrimptech.vn"},
		To:      Address{Name: "Admin", Email: "admin@shrimptech.vn"},
		Subject: "hello",
		HTML:    "<p>hello</p>",
		Text:    "hello",
		Headers: map[string]string{HeaderMessageID: "<1.abc@shrimptech.vn>"},
	}
}

func TestDispatcher_SendReturnsMessageID(t *testing.T) {
	dialer := &fakeDialer{}
	d := newDispatcherWithDialer(testConfig(), testLogger(), dialer.dial)

	id, err := d.Send(context.Background(), testMessage())

	require.NoError(t, err)
	assert.Equal(t, "<1.abc@shrimptech.vn>", id)
	assert.Equal(t, 1, dialer.dialed())
}

func TestDispatcher_ReusesSessionUntilMessageCap(t *testing.T) {
	dialer := &fakeDialer{}
	cfg := testConfig()
	cfg.MaxMessagesPerConn = 3
	d := newDispatcherWithDialer(cfg, testLogger(), dialer.dial)

	for i := 0; i < 7; i++ {
		_, err := d.Send(context.Background(), testMessage())
		require.NoError(t, err)
	}

	// 3 + 3 + 1
	assert.Equal(t, 3, dialer.dialed())
	assert.True(t, dialer.conns[0].closed.Load())
	assert.True(t, dialer.conns[1].closed.Load())
	assert.False(t, dialer.conns[2].closed.Load())
}

func TestDispatcher_BoundsConcurrentSessions(t *testing.T) {
	release := make(chan struct{})
	var inFlight, peak atomic.Int32

	dialer := &fakeDialer{sendFn: func() error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return nil
	}}
	cfg := testConfig()
	cfg.MaxConnections = 2
	d := newDispatcherWithDialer(cfg, testLogger(), dialer.dial)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Send(context.Background(), testMessage())
		}()
	}

	require.Eventually(t, func() bool { return inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(2), peak.Load())
	assert.LessOrEqual(t, dialer.dialed(), 2)
}

func TestDispatcher_SendFailureIsClassified(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("535 5.7.8 authentication failed")}
	d := newDispatcherWithDialer(testConfig(), testLogger(), dialer.dial)

	_, err := d.Send(context.Background(), testMessage())

	var de *DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, KindAuthFailure, de.Kind)
	assert.Equal(t, 0, d.Stats().InUse)
}

func TestDispatcher_FailedSessionIsDiscarded(t *testing.T) {
	dialer := &fakeDialer{sendFn: func() error { return errors.New("connection reset by peer") }}
	d := newDispatcherWithDialer(testConfig(), testLogger(), dialer.dial)

	_, err := d.Send(context.Background(), testMessage())

	assert.Equal(t, KindConnectionFailure, KindOf(err))
	assert.True(t, dialer.conns[0].closed.Load())
	assert.Equal(t, 0, d.Stats().Idle)
}

func TestDispatcher_SendTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	dialer := &fakeDialer{sendFn: func() error {
		<-block
		return nil
	}}
	cfg := testConfig()
	cfg.SendTimeout = 50 * time.Millisecond
	d := newDispatcherWithDialer(cfg, testLogger(), dialer.dial)

	start := time.Now()
	_, err := d.Send(context.Background(), testMessage())

	assert.Equal(t, KindConnectionFailure, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatcher_VerifyCachesStatus(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("dial tcp 127.0.0.1:1025: connection refused")}
	d := newDispatcherWithDialer(testConfig(), testLogger(), dialer.dial)

	assert.False(t, d.Status().OK)
	assert.True(t, d.Status().CheckedAt.IsZero())

	err := d.Verify(context.Background())
	require.Error(t, err)

	status := d.Status()
	assert.False(t, status.OK)
	assert.Equal(t, KindConnectionFailure, KindOf(status.Err))
	assert.False(t, status.CheckedAt.IsZero())

	dialer.mu.Lock()
	dialer.err = nil
	dialer.mu.Unlock()

	require.NoError(t, d.Verify(context.Background()))
	assert.True(t, d.Status().OK)
	assert.True(t, dialer.conns[0].closed.Load())
}

func TestDispatcher_Shutdown(t *testing.T) {
	dialer := &fakeDialer{}
	d := newDispatcherWithDialer(testConfig(), testLogger(), dialer.dial)

	_, err := d.Send(context.Background(), testMessage())
	require.NoError(t, err)

	d.Shutdown()
	assert.True(t, dialer.conns[0].closed.Load())

	_, err = d.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestPool_DropsStaleIdleSessions(t *testing.T) {
	dialer := &fakeDialer{}
	p := newPool(dialer.dial, 1, 100, time.Minute)
	now := time.Now()
	p.now = func() time.Time { return now }

	pc, err := p.acquire(context.Background())
	require.NoError(t, err)
	p.release(pc, true)

	now = now.Add(2 * time.Minute)
	pc2, err := p.acquire(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, pc, pc2)
	assert.True(t, dialer.conns[0].closed.Load())
	p.release(pc2, true)
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		count    int
	}{
		{name: "local relay without auth", provider: Provider{Port: 1025}, count: 3},
		{name: "submission port with auth", provider: Provider{Port: 587, Username: "u", Password: "p"}, count: 6},
		{name: "implicit tls", provider: Provider{Port: 2465, Secure: true}, count: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, buildClientOptions(tt.provider, time.Second), tt.count)
		})
	}
}

func TestBuildMsg(t *testing.T) {
	msg := testMessage()
	msg.ReplyTo = Address{Name: "Nguyễn Văn A", Email: "a@example.com"}

	m, err := buildMsg(msg)
	require.NoError(t, err)

	assert.Equal(t, []string{"<1.abc@shrimptech.vn>"}, m.GetGenHeader(mail.HeaderMessageID))
	assert.Equal(t, []string{"hello"}, m.GetGenHeader(mail.HeaderSubject))

	msg.To.Email = "not an address"
	_, err = buildMsg(msg)
	assert.Error(t, err)
}
