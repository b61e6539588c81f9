package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/flowboard/internal/editor"
	"github.com/starford/flowboard/internal/graph"
	"github.com/starford/flowboard/internal/models"
	"github.com/starford/flowboard/internal/session"
	"github.com/starford/flowboard/internal/testutil"
)

// testEnv builds a router over a fresh session manager.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*session.Manager, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*session.Manager, http.Handler) {
	t.Helper()
	mgr := session.NewManager(4, nil, testutil.Logger())
	t.Cleanup(mgr.CloseAll)
	return mgr, NewRouter(mgr, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func openSession(t *testing.T, router http.Handler) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("open session = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[SessionDetail](t, w).ID
}

func dropNode(t *testing.T, router http.Handler, sid string, kind models.Kind, x, y float64) *models.Node {
	t.Helper()
	w := do(t, router, http.MethodPost, "/sessions/"+sid+"/drop", DropRequest{
		Payload: string(kind),
		Screen:  models.Position{X: x, Y: y},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("drop %s = %d, body = %s", kind, w.Code, w.Body.String())
	}
	n := decode[models.Node](t, w)
	return &n
}

func TestNodeKinds(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/node-kinds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("node kinds = %d", w.Code)
	}
	resp := decode[NodeKindsResponse](t, w)
	if len(resp.Kinds) != 4 {
		t.Fatalf("kinds = %d, want 4", len(resp.Kinds))
	}
	if resp.Kinds[0].Kind != models.KindAPI || resp.Kinds[0].Label != "API" {
		t.Errorf("first kind = %+v", resp.Kinds[0])
	}
	if len(resp.Kinds[0].SourceHandles) != 2 {
		t.Errorf("API handles = %v", resp.Kinds[0].SourceHandles)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)

	w := do(t, router, http.MethodGet, "/sessions/"+sid, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session = %d", w.Code)
	}
	d := decode[SessionDetail](t, w)
	if d.Viewport != editor.InitialViewport {
		t.Errorf("viewport = %+v, want initial", d.Viewport)
	}
	if d.Focus.State != editor.Idle {
		t.Errorf("focus = %s, want idle", d.Focus.State)
	}

	w = do(t, router, http.MethodGet, "/sessions", nil)
	if got := len(decode[SessionListResponse](t, w).Sessions); got != 1 {
		t.Errorf("sessions = %d, want 1", got)
	}

	w = do(t, router, http.MethodDelete, "/sessions/"+sid, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("close = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/sessions/"+sid+"/graph", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("graph after close = %d, want 404", w.Code)
	}
}

func TestSessionLimit(t *testing.T) {
	_, router := testEnv(t, "")
	for range 4 {
		openSession(t, router)
	}
	w := do(t, router, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("fifth session = %d, want 429", w.Code)
	}
}

func TestDropAndConnect(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)

	q := dropNode(t, router, sid, models.KindQueue, 10, 20)
	a := dropNode(t, router, sid, models.KindAPI, 200, 20)
	f := dropNode(t, router, sid, models.KindFunction, 400, 20)

	if q.Position != (models.Position{X: 10, Y: 20}) {
		t.Errorf("queue position = %+v", q.Position)
	}
	if !strings.HasPrefix(q.ID, "queueNode-") {
		t.Errorf("queue id = %s", q.ID)
	}

	// Queue → API is refused with a reason.
	w := do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{Source: q.ID, Target: a.ID})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Q→A = %d, want 422", w.Code)
	}
	rej := decode[RejectionResponse](t, w)
	if rej.Error != "Queue nodes can only connect to Function nodes." || rej.Silent {
		t.Errorf("rejection = %+v", rej)
	}

	w = do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{Source: q.ID, Target: f.ID})
	if w.Code != http.StatusCreated {
		t.Fatalf("Q→F = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{
		Source: a.ID, Target: f.ID, SourceHandle: models.HandleResponse,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("A→F = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/sessions/"+sid+"/graph", nil)
	g := decode[GraphResponse](t, w)
	if len(g.Nodes) != 3 || len(g.Edges) != 2 {
		t.Errorf("graph = %d nodes, %d edges; want 3, 2", len(g.Nodes), len(g.Edges))
	}
	if g.Seq != 5 {
		t.Errorf("seq = %d, want 5", g.Seq)
	}
}

func TestConnectSilentRejection(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	a := dropNode(t, router, sid, models.KindAPI, 0, 0)
	f := dropNode(t, router, sid, models.KindFunction, 100, 0)

	w := do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{
		Source: a.ID, Target: f.ID, SourceHandle: "bogus",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad handle = %d, want 422", w.Code)
	}
	if !decode[RejectionResponse](t, w).Silent {
		t.Error("bad handle rejection should be silent")
	}

	w = do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{Source: a.ID, Target: "ghost"})
	if w.Code != http.StatusUnprocessableEntity || !decode[RejectionResponse](t, w).Silent {
		t.Errorf("missing target = %d %s", w.Code, w.Body.String())
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	f := dropNode(t, router, sid, models.KindFunction, 0, 0)
	d := dropNode(t, router, sid, models.KindDatabase, 100, 0)
	do(t, router, http.MethodPost, "/sessions/"+sid+"/edges", graph.EdgeRequest{Source: f.ID, Target: d.ID})

	w := do(t, router, http.MethodDelete, "/sessions/"+sid+"/nodes/"+f.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}
	g := decode[GraphResponse](t, do(t, router, http.MethodGet, "/sessions/"+sid+"/graph", nil))
	if len(g.Nodes) != 1 || len(g.Edges) != 0 {
		t.Errorf("after delete: %d nodes, %d edges", len(g.Nodes), len(g.Edges))
	}

	// Deleting again is a no-op.
	w = do(t, router, http.MethodDelete, "/sessions/"+sid+"/nodes/"+f.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("second delete = %d, want 204", w.Code)
	}
}

func TestDuplicateNode(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	q := dropNode(t, router, sid, models.KindQueue, 50, 60)

	w := do(t, router, http.MethodPost, "/sessions/"+sid+"/nodes/"+q.ID+"/duplicate", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("duplicate = %d", w.Code)
	}
	dup := decode[models.Node](t, w)
	if dup.ID == q.ID || dup.Position != (models.Position{X: 70, Y: 80}) {
		t.Errorf("duplicate = %+v", dup)
	}

	w = do(t, router, http.MethodPost, "/sessions/"+sid+"/nodes/ghost/duplicate", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("duplicate missing = %d, want 404", w.Code)
	}
}

func TestUpdateNodeDataWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	d := dropNode(t, router, sid, models.KindDatabase, 0, 0)
	path := "/sessions/" + sid + "/nodes/" + d.ID

	w := do(t, router, http.MethodGet, path, nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	body, _ := json.Marshal(models.DatabaseConfig{Operation: models.OperationWrite, Table: "orders"})
	req := httptest.NewRequest(http.MethodPut, path+"/data", bytes.NewReader(body))
	req.Header.Set("If-Match", `"stale"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale If-Match = %d, want 409", w.Code)
	}

	req = httptest.NewRequest(http.MethodPut, path+"/data", bytes.NewReader(body))
	req.Header.Set("If-Match", etag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d, body = %s", w.Code, w.Body.String())
	}
	n := decode[models.Node](t, w)
	cfg := n.Data.(*models.DatabaseConfig)
	if cfg.Operation != models.OperationWrite || cfg.Table != "orders" {
		t.Errorf("data = %+v", cfg)
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag did not change")
	}
}

func TestUpdateNodeDataInvalid(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	q := dropNode(t, router, sid, models.KindQueue, 0, 0)

	w := do(t, router, http.MethodPut, "/sessions/"+sid+"/nodes/"+q.ID+"/data", map[string]string{"queueType": "fanout"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid queue type = %d, want 400", w.Code)
	}
}

func TestFocusLockBlocksCanvas(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	f := dropNode(t, router, sid, models.KindFunction, 0, 0)
	base := "/sessions/" + sid

	if w := do(t, router, http.MethodPut, base+"/regions/code-"+f.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("register = %d", w.Code)
	}
	w := do(t, router, http.MethodPost, base+"/focus", editor.FocusEvent{Type: editor.PointerDown, Target: "code-" + f.ID})
	st := decode[editor.FocusStatus](t, w)
	if st.State != editor.Locked || st.Interactivity.Pan {
		t.Fatalf("after pointerdown = %+v", st)
	}

	w = do(t, router, http.MethodPut, base+"/nodes/"+f.ID+"/position", PositionRequest{Position: models.Position{X: 5, Y: 5}})
	if w.Code != http.StatusLocked {
		t.Errorf("move while locked = %d, want 423", w.Code)
	}
	w = do(t, router, http.MethodPut, base+"/viewport", ViewportRequest{DX: 10})
	if w.Code != http.StatusLocked {
		t.Errorf("pan while locked = %d, want 423", w.Code)
	}

	w = do(t, router, http.MethodPost, base+"/focus", editor.FocusEvent{Type: editor.FocusOut, Target: "code-" + f.ID})
	if decode[editor.FocusStatus](t, w).State != editor.Idle {
		t.Fatal("focusout did not release the lock")
	}
	w = do(t, router, http.MethodPut, base+"/nodes/"+f.ID+"/position", PositionRequest{Position: models.Position{X: 5, Y: 5}})
	if w.Code != http.StatusOK {
		t.Errorf("move after release = %d, want 200", w.Code)
	}
}

func TestViewportZoomClamped(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)

	zoom := 9.0
	w := do(t, router, http.MethodPut, "/sessions/"+sid+"/viewport", ViewportRequest{DX: 5, DY: -5, Zoom: &zoom})
	if w.Code != http.StatusOK {
		t.Fatalf("viewport = %d", w.Code)
	}
	v := decode[editor.Viewport](t, w)
	if v.X != 5 || v.Y != -5 || v.Zoom != editor.MaxZoom {
		t.Errorf("viewport = %+v", v)
	}
}

func TestMenuFlow(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	a := dropNode(t, router, sid, models.KindAPI, 0, 0)
	base := "/sessions/" + sid

	w := do(t, router, http.MethodPost, base+"/menu", OpenMenuRequest{Kind: editor.NodeMenu, TargetID: a.ID, X: 3, Y: 4})
	if w.Code != http.StatusOK {
		t.Fatalf("open menu = %d", w.Code)
	}
	if got := decode[MenuResponse](t, w).Actions; len(got) != 2 {
		t.Errorf("actions = %v", got)
	}

	w = do(t, router, http.MethodPost, base+"/menu/duplicate", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("menu duplicate = %d", w.Code)
	}
	if decode[MenuResponse](t, do(t, router, http.MethodGet, base+"/menu", nil)).Open {
		t.Error("menu still open after duplicate")
	}

	// Stale target: menu opened, node deleted behind it.
	do(t, router, http.MethodPost, base+"/menu", OpenMenuRequest{Kind: editor.NodeMenu, TargetID: a.ID})
	do(t, router, http.MethodDelete, base+"/nodes/"+a.ID, nil)
	w = do(t, router, http.MethodPost, base+"/menu/duplicate", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("stale duplicate = %d, want 204", w.Code)
	}

	w = do(t, router, http.MethodPost, base+"/menu", OpenMenuRequest{Kind: editor.EdgeMenu, TargetID: "ghost"})
	if w.Code != http.StatusNotFound {
		t.Errorf("menu on missing edge = %d, want 404", w.Code)
	}
}

func TestResponseCatalog(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	a := dropNode(t, router, sid, models.KindAPI, 0, 0)
	path := "/sessions/" + sid + "/nodes/" + a.ID + "/responses"

	w := do(t, router, http.MethodPost, path, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("add response = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[ResponseState](t, w).Response.Content; got != "{}" {
		t.Errorf("new content = %q", got)
	}

	bad := `{"a":`
	w = do(t, router, http.MethodPut, path+"/0", ResponseRequest{Content: &bad})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid JSON = %d, want 422", w.Code)
	}
	if got := decode[ResponseState](t, w).Error; got != "Invalid JSON format" {
		t.Errorf("error = %q", got)
	}
	n := decode[models.Node](t, do(t, router, http.MethodGet, "/sessions/"+sid+"/nodes/"+a.ID, nil))
	if got := n.Data.(*models.APIConfig).Responses[0].Content; got != "{}" {
		t.Errorf("stored content = %q, want unchanged", got)
	}

	good := `{"ok":true}`
	code := "201"
	w = do(t, router, http.MethodPut, path+"/0", ResponseRequest{Content: &good, Code: &code})
	if w.Code != http.StatusOK {
		t.Fatalf("valid update = %d, body = %s", w.Code, w.Body.String())
	}
	st := decode[ResponseState](t, w)
	if st.Error != "" || st.Response.Code != "201" {
		t.Errorf("state = %+v", st)
	}

	if w := do(t, router, http.MethodDelete, path+"/0", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete response = %d", w.Code)
	}
	if w := do(t, router, http.MethodDelete, path+"/0", nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing response = %d, want 404", w.Code)
	}
}

func TestResponsesOnNonAPINodeIsBadRequest(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	f := dropNode(t, router, sid, models.KindFunction, 0, 0)

	w := do(t, router, http.MethodPost, "/sessions/"+sid+"/nodes/"+f.ID+"/responses", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("responses on function node = %d, want 400 (body %s)", w.Code, w.Body.String())
	}
}

func TestSetBodyReportsInlineError(t *testing.T) {
	_, router := testEnv(t, "")
	sid := openSession(t, router)
	a := dropNode(t, router, sid, models.KindAPI, 0, 0)

	w := do(t, router, http.MethodPut, "/sessions/"+sid+"/nodes/"+a.ID+"/body", BodyRequest{Content: "{nope"})
	if w.Code != http.StatusOK {
		t.Fatalf("set body = %d", w.Code)
	}
	if got := decode[BodyResponse](t, w).Error; got != "Invalid JSON format" {
		t.Errorf("inline error = %q", got)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed open = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/sessions", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/sessions", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", blockingSSE)

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
