package obs

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/hlemont/stream-automate/internal/protocol"
)

const (
	testSalt      = "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="
	testChallenge = "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY="
)

// fakeOBS is a minimal obs-websocket 4.x server.
type fakeOBS struct {
	t        *testing.T
	server   *httptest.Server
	password string
	upgrader websocket.Upgrader

	mu       sync.Mutex
	scenes   []string
	current  string
	requests []string
	conns    []*websocket.Conn
}

func newFakeOBS(t *testing.T, password string, scenes ...string) *fakeOBS {
	t.Helper()
	f := &fakeOBS{t: t, password: password, scenes: scenes}
	if len(scenes) > 0 {
		f.current = scenes[0]
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOBS) options() ClientOptions {
	host, port, err := net.SplitHostPort(f.server.Listener.Addr().String())
	require.NoError(f.t, err)
	p, err := strconv.Atoi(port)
	require.NoError(f.t, err)
	return ClientOptions{Address: host, Port: p, Password: f.password}
}

func (f *fakeOBS) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// dropAll closes every server-side connection.
func (f *fakeOBS) dropAll() {
	f.mu.Lock()
	conns := f.conns
	f.conns = nil
	f.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

// broadcast sends an event to every connection.
func (f *fakeOBS) broadcast(fields map[string]any) {
	data, err := json.Marshal(fields)
	require.NoError(f.t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		_ = c.WriteMessage(websocket.TextMessage, data)
	}
}

func (f *fakeOBS) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]any
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		resp := f.respond(req)
		resp["message-id"] = req["message-id"]
		out, _ := json.Marshal(resp)

		f.mu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, out)
		f.mu.Unlock()
		if err != nil {
			return
		}
	}
}

func (f *fakeOBS) respond(req map[string]any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	typ, _ := req["request-type"].(string)
	f.requests = append(f.requests, typ)

	ok := func(fields map[string]any) map[string]any {
		if fields == nil {
			fields = map[string]any{}
		}
		fields["status"] = protocol.StatusOK
		return fields
	}
	fail := func(msg string) map[string]any {
		return map[string]any{"status": protocol.StatusError, "error": msg}
	}

	switch typ {
	case protocol.GetAuthRequired:
		if f.password == "" {
			return ok(map[string]any{"authRequired": false})
		}
		return ok(map[string]any{"authRequired": true, "salt": testSalt, "challenge": testChallenge})
	case protocol.Authenticate:
		if req["auth"] != protocol.AuthResponse(f.password, testSalt, testChallenge) {
			return fail("Authentication Failed.")
		}
		return ok(nil)
	case protocol.GetSceneList:
		scenes := make([]map[string]any, len(f.scenes))
		for i, s := range f.scenes {
			scenes[i] = map[string]any{"name": s}
		}
		return ok(map[string]any{"current-scene": f.current, "scenes": scenes})
	case protocol.GetCurrentScene:
		return ok(map[string]any{"name": f.current})
	case protocol.SetCurrentScene:
		name, _ := req["scene-name"].(string)
		for _, s := range f.scenes {
			if s == name {
				f.current = name
				return ok(nil)
			}
		}
		return fail("requested scene does not exist")
	default:
		return ok(nil)
	}
}
