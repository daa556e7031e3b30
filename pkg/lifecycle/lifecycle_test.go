package lifecycle

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp/fasthttputil"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func hook(r *recorder, name string) Hook {
	return func(context.Context, *Service) error {
		r.add(name)
		return nil
	}
}

func TestRunOrdersHooksAndServes(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	ln := fasthttputil.NewInmemoryListener()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New("portal").
		Listener(ln).
		App(app).
		OnStart(hook(rec, "start")).
		OnReady(hook(rec, "ready")).
		OnStop(hook(rec, "stop-1")).
		OnStop(hook(rec, "stop-2")).
		Build()
	svc.OnEvent(func(e Event) { rec.add(string(e)) })

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(rec.list()) >= 4
	}, 2*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{
		DisableKeepAlives: true,
		DialContext: func(context.Context, string, string) (net.Conn, error) {
			return ln.Dial()
		},
	}}
	resp, err := client.Get("http://portal/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}

	assert.Equal(t, []string{
		"starting", "start", "ready", "ready", "stopping", "stop-2", "stop-1", "stopped",
	}, rec.list())
}

func TestStartHookFailureAborts(t *testing.T) {
	boom := errors.New("migrate failed")
	err := New("portal").
		Listener(fasthttputil.NewInmemoryListener()).
		OnStart(func(context.Context, *Service) error { return boom }).
		Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
