package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/trocaroupa/trocas/internal/auth"
	"github.com/trocaroupa/trocas/internal/db"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
	"github.com/trocaroupa/trocas/internal/troca"
)

const testJWTSecret = "test-secret"

type webEnv struct {
	server  *httptest.Server
	anaItem int64
	biaItem int64
	caioID  int64
}

func setupWeb(t *testing.T) *webEnv {
	t.Helper()
	database := db.NewTestDB(t)
	router, err := NewRouter(database, troca.NewEngine(database), testJWTSecret)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	ctx := context.Background()
	hash, _ := auth.HashPassword("password")
	store.CreateUser(ctx, database, "Admin", "admin@example.com", hash, model.RoleAdmin)
	ana, _ := store.CreateUser(ctx, database, "Ana", "ana@example.com", hash, model.RoleUser)
	bia, _ := store.CreateUser(ctx, database, "Bia", "bia@example.com", hash, model.RoleUser)
	caio, _ := store.CreateUser(ctx, database, "Caio", "caio@example.com", hash, model.RoleUser)

	in := store.ItemInput{Name: "Jaqueta jeans", Category: "casaco", Size: "M", Condition: "usado"}
	anaItem, err := store.CreateItem(ctx, database, ana.ID, in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	in.Name = "Vestido floral"
	in.Category = "vestido"
	biaItem, err := store.CreateItem(ctx, database, bia.ID, in)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	return &webEnv{server: server, anaItem: anaItem.ID, biaItem: biaItem.ID, caioID: caio.ID}
}

// browser is a cookie-carrying client that does not follow redirects, so
// tests can assert where a form submission sends the user.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (e *webEnv) browser(t *testing.T) *browser {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	return &browser{
		t:    t,
		base: e.server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (e *webEnv) loggedIn(t *testing.T, email string) *browser {
	t.Helper()
	b := e.browser(t)
	resp, _ := b.post("/login", url.Values{"email": {email}, "password": {"password"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	return b
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	if err != nil {
		b.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}

func TestLoadTemplates(t *testing.T) {
	ts, err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	for _, name := range []string{"login.html", "dashboard.html", "item_detail.html", "troca_detail.html", "conflicts.html"} {
		if _, ok := ts.templates[name]; !ok {
			t.Errorf("template %s not loaded", name)
		}
	}
}

func TestPagesRequireSession(t *testing.T) {
	env := setupWeb(t)
	b := env.browser(t)

	for _, path := range []string{"/", "/items", "/trocas", "/my/items", "/admin/users"} {
		resp, _ := b.get(path)
		if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
			t.Errorf("GET %s: got %d to %q, want redirect to /login", path, resp.StatusCode, resp.Header.Get("Location"))
		}
	}

	resp, body := b.get("/login")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `name="password"`) {
		t.Errorf("login page: status %d", resp.StatusCode)
	}
}

func TestLoginFailure(t *testing.T) {
	env := setupWeb(t)
	b := env.browser(t)

	resp, body := b.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong"}})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "E-mail ou senha incorretos.") {
		t.Error("expected error message on login page")
	}
}

func TestRegister(t *testing.T) {
	env := setupWeb(t)
	b := env.browser(t)

	form := url.Values{
		"name":             {"Duda"},
		"email":            {"Duda@Example.com"},
		"password":         {"segredo123"},
		"password_confirm": {"segredo123"},
	}
	resp, _ := b.post("/register", form)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("register: got %d to %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, body := b.get("/")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Duda") {
		t.Errorf("dashboard after register: status %d", resp.StatusCode)
	}

	// Same address again, different case.
	form.Set("email", "duda@example.com")
	resp, body = env.browser(t).post("/register", form)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, errorMessages["email-em-uso"]) {
		t.Error("expected email-in-use message")
	}

	form.Set("email", "eva@example.com")
	form.Set("password_confirm", "outra-senha")
	resp, _ = env.browser(t).post("/register", form)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("mismatched passwords: expected 400, got %d", resp.StatusCode)
	}
}

func TestTrocaFlowThroughForms(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")
	bia := env.loggedIn(t, "bia@example.com")

	// Ana sees Bia's piece with her own piece offered in the proposal form.
	resp, body := ana.get(fmt.Sprintf("/items/%d", env.biaItem))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("item detail: status %d", resp.StatusCode)
	}
	if !strings.Contains(body, `name="offered_item_id"`) || !strings.Contains(body, "Jaqueta jeans") {
		t.Fatal("expected proposal form offering Ana's piece")
	}

	resp, _ = ana.post("/trocas", url.Values{
		"desired_item_id": {fmt.Sprint(env.biaItem)},
		"offered_item_id": {fmt.Sprint(env.anaItem)},
		"message":         {"Troco?"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("propose: status %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	trocaPath, _, _ := strings.Cut(loc, "?")
	if !strings.HasPrefix(trocaPath, "/trocas/") || !strings.HasSuffix(loc, "ok=proposta-enviada") {
		t.Fatalf("unexpected redirect %q", loc)
	}

	// Bia sees the accept button, Ana does not.
	_, body = bia.get(trocaPath)
	if !strings.Contains(body, trocaPath+"/accept") {
		t.Error("receiver should see accept action")
	}
	_, body = ana.get(trocaPath)
	if strings.Contains(body, trocaPath+"/accept") {
		t.Error("proposer should not see accept action")
	}

	resp, _ = ana.post(trocaPath+"/accept", nil)
	if loc := resp.Header.Get("Location"); loc != trocaPath+"?erro=nao-autorizado" {
		t.Errorf("proposer accept: redirect %q", loc)
	}

	resp, _ = bia.post(trocaPath+"/accept", nil)
	if loc := resp.Header.Get("Location"); loc != trocaPath+"?ok=troca-aceita" {
		t.Fatalf("accept: redirect %q", loc)
	}

	resp, _ = ana.post(trocaPath+"/confirm", nil)
	if loc := resp.Header.Get("Location"); loc != trocaPath+"?ok=troca-confirmada" {
		t.Errorf("first confirm: redirect %q", loc)
	}
	_, body = ana.get(trocaPath)
	if strings.Contains(body, trocaPath+"/confirm") {
		t.Error("confirm action should be gone after confirming")
	}

	resp, _ = bia.post(trocaPath+"/confirm", nil)
	if loc := resp.Header.Get("Location"); loc != trocaPath+"?ok=troca-finalizada" {
		t.Errorf("second confirm: redirect %q", loc)
	}

	_, body = bia.get(trocaPath + "?ok=troca-finalizada")
	if !strings.Contains(body, "Finalizada") || !strings.Contains(body, notices["troca-finalizada"]) {
		t.Error("expected finalized troca page with notice")
	}

	_, body = ana.get("/")
	if !strings.Contains(body, trocaPath) {
		t.Error("dashboard should list the recent troca")
	}
}

func TestProposeErrorsRedirectBack(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")
	back := fmt.Sprintf("/items/%d", env.anaItem)

	resp, _ := ana.post("/trocas", url.Values{
		"desired_item_id": {fmt.Sprint(env.anaItem)},
		"offered_item_id": {fmt.Sprint(env.anaItem)},
	})
	if loc := resp.Header.Get("Location"); loc != back+"?erro=mesmo-dono" {
		t.Errorf("self trade: redirect %q", loc)
	}

	resp, _ = ana.post("/trocas", url.Values{"desired_item_id": {fmt.Sprint(env.anaItem)}})
	if loc := resp.Header.Get("Location"); loc != back+"?erro=dados-invalidos" {
		t.Errorf("missing offered item: redirect %q", loc)
	}

	_, body := ana.get(back + "?erro=mesmo-dono")
	if !strings.Contains(body, errorMessages["mesmo-dono"]) {
		t.Error("expected error message on item page")
	}
}

func TestTrocaHiddenFromOutsider(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")
	caio := env.loggedIn(t, "caio@example.com")

	resp, _ := ana.post("/trocas", url.Values{
		"desired_item_id": {fmt.Sprint(env.biaItem)},
		"offered_item_id": {fmt.Sprint(env.anaItem)},
	})
	trocaPath, _, _ := strings.Cut(resp.Header.Get("Location"), "?")

	resp, _ = caio.get(trocaPath)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("outsider view: expected 403, got %d", resp.StatusCode)
	}
	resp, _ = caio.post(trocaPath+"/cancel", nil)
	if loc := resp.Header.Get("Location"); loc != trocaPath+"?erro=nao-autorizado" {
		t.Errorf("outsider cancel: redirect %q", loc)
	}

	resp, _ = caio.get("/trocas/9999")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing troca: expected 404, got %d", resp.StatusCode)
	}
}

func TestMyItems(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")

	resp, _ := ana.post("/my/items", url.Values{
		"name":      {"Camisa xadrez"},
		"category":  {"camisa"},
		"size":      {"G"},
		"condition": {"seminovo"},
	})
	loc := resp.Header.Get("Location")
	if resp.StatusCode != http.StatusSeeOther || !strings.HasSuffix(loc, "ok=item-criado") {
		t.Fatalf("create item: got %d to %q", resp.StatusCode, loc)
	}

	resp, _ = ana.post("/my/items", url.Values{"name": {"Bota"}, "category": {"sapato"}, "size": {"M"}, "condition": {"novo"}})
	if loc := resp.Header.Get("Location"); loc != "/my/items?erro=dados-invalidos" {
		t.Errorf("invalid item: redirect %q", loc)
	}

	_, body := ana.get("/my/items")
	if !strings.Contains(body, "Camisa xadrez") || !strings.Contains(body, "Jaqueta jeans") {
		t.Error("my items should list both of Ana's pieces")
	}

	// Browsing hides Ana's own pieces.
	_, body = ana.get("/items")
	if strings.Contains(body, "Camisa xadrez") || !strings.Contains(body, "Vestido floral") {
		t.Error("browse should list only other users' pieces")
	}

	// Bia cannot edit or delete Ana's piece.
	bia := env.loggedIn(t, "bia@example.com")
	resp, _ = bia.post(fmt.Sprintf("/items/%d/delete", env.anaItem), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign delete: expected 403, got %d", resp.StatusCode)
	}
}

func TestAdminPages(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")
	admin := env.loggedIn(t, "admin@example.com")

	for _, path := range []string{"/admin/users", "/admin/conflicts"} {
		if resp, _ := ana.get(path); resp.StatusCode != http.StatusForbidden {
			t.Errorf("user GET %s: expected 403, got %d", path, resp.StatusCode)
		}
		if resp, _ := admin.get(path); resp.StatusCode != http.StatusOK {
			t.Errorf("admin GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	_, body := admin.get("/admin/users")
	if !strings.Contains(body, "caio@example.com") {
		t.Error("users page should list Caio")
	}
	_, body = admin.get("/admin/conflicts")
	if !strings.Contains(body, "Nenhum conflito pendente.") {
		t.Error("conflicts page should be empty")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")

	// Keep a copy of the session cookie to replay after logout.
	u, _ := url.Parse(env.server.URL)
	cookies := ana.client.Jar.Cookies(u)
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	resp, _ := ana.post("/logout", nil)
	if resp.Header.Get("Location") != "/login" {
		t.Fatalf("logout: redirect %q", resp.Header.Get("Location"))
	}

	replay := env.browser(t)
	replay.client.Jar.SetCookies(u, cookies)
	resp, _ = replay.get("/")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("revoked session still accepted: status %d", resp.StatusCode)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupWeb(t)
	ana := env.loggedIn(t, "ana@example.com")

	resp, _ := ana.post("/settings", url.Values{"current_password": {"wrong"}, "new_password": {"novasenha1"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("wrong current password: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = ana.post("/settings", url.Values{"current_password": {"password"}, "new_password": {"novasenha1"}})
	if loc := resp.Header.Get("Location"); loc != "/settings?ok=senha-alterada" {
		t.Fatalf("change password: redirect %q", loc)
	}

	b := env.browser(t)
	resp, _ = b.post("/login", url.Values{"email": {"ana@example.com"}, "password": {"novasenha1"}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("login with new password: status %d", resp.StatusCode)
	}
}

func TestDeletedUserSessionEnds(t *testing.T) {
	env := setupWeb(t)
	caio := env.loggedIn(t, "caio@example.com")
	admin := env.loggedIn(t, "admin@example.com")

	if resp, _ := caio.get("/"); resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard before delete: status %d", resp.StatusCode)
	}

	resp, _ := admin.post(fmt.Sprintf("/admin/users/%d/delete", env.caioID), nil)
	if loc := resp.Header.Get("Location"); loc != "/admin/users?ok=usuario-removido" {
		t.Fatalf("delete caio: redirect %q", loc)
	}

	resp, _ = caio.get("/")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("deleted user's session still accepted: status %d", resp.StatusCode)
	}
	resp, _ = caio.post("/my/items", url.Values{
		"name": {"Bota"}, "category": {"calcado"}, "size": {"38"}, "condition": {"novo"},
	})
	if resp.Header.Get("Location") != "/login" {
		t.Errorf("deleted user created a listing: redirect %q", resp.Header.Get("Location"))
	}
}
