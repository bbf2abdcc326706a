//go:build integration

package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/queue"
	"github.com/bissquit/barber-queue/internal/testutil"
	"github.com/stretchr/testify/require"
)

// smsGateway records messages posted by the SMS sender.
type smsGateway struct {
	server *httptest.Server

	mu       sync.Mutex
	messages map[string][]string
}

func newSMSGateway() *smsGateway {
	g := &smsGateway{messages: make(map[string][]string)}
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			To   string `json:"to"`
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		g.mu.Lock()
		g.messages[req.To] = append(g.messages[req.To], req.Text)
		g.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	}))
	return g
}

func (g *smsGateway) URL() string { return g.server.URL }

func (g *smsGateway) Close() { g.server.Close() }

func (g *smsGateway) messagesTo(phone string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.messages[phone]...)
}

// randomPhone returns a unique E.164 number so tests never share a dedupe key.
func randomPhone() string {
	return fmt.Sprintf("+23480%08d", rand.Intn(100_000_000))
}

// createBarber stores an available barber and returns it with a signed token.
func createBarber(t *testing.T, salon string) (*domain.Barber, string) {
	t.Helper()

	barber := &domain.Barber{
		Name:           "Tunde",
		SalonName:      salon,
		AcceptsWalkIns: true,
		IsAvailable:    true,
	}
	require.NoError(t, barbers.CreateBarber(context.Background(), barber))

	token, err := tokens.IssueToken(barber.ID)
	require.NoError(t, err)
	return barber, token
}

func joinQueue(t *testing.T, client *testutil.Client, barberID, name, phone string) domain.QueueEntry {
	t.Helper()

	resp, err := client.POST("/api/v1/barbers/"+barberID+"/queue", map[string]string{
		"customer_name": name,
		"phone":         phone,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return testutil.DecodeData[domain.QueueEntry](t, resp)
}

func postAction(t *testing.T, client *testutil.Client, path string, wantStatus int) {
	t.Helper()

	resp, err := client.POST(path, nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, wantStatus, resp.StatusCode)
}

func getView(t *testing.T, client *testutil.Client, barberID string) queue.QueueView {
	t.Helper()

	resp, err := client.GET("/api/v1/barbers/" + barberID + "/queue")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return testutil.DecodeData[queue.QueueView](t, resp)
}

// openStream connects to a queue stream and returns decoded views as they arrive.
// The stream is closed when the test ends.
func openStream(t *testing.T, baseURL, barberID string) <-chan queue.QueueView {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/barbers/"+barberID+"/queue/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	views := make(chan queue.QueueView, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			var v queue.QueueView
			if json.Unmarshal([]byte(data), &v) != nil {
				continue
			}
			select {
			case views <- v:
			default:
			}
		}
	}()

	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
		<-done
	})
	return views
}

// waitForView returns the first view satisfying match or fails after timeout.
func waitForView(t *testing.T, views <-chan queue.QueueView, match func(queue.QueueView) bool) queue.QueueView {
	t.Helper()

	timeout := time.After(10 * time.Second)
	for {
		select {
		case v := <-views:
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for queue view")
			return queue.QueueView{}
		}
	}
}
