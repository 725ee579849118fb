package controllers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/newsboard/config"
	"github.com/cppla/newsboard/middleware"
	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/routes"
	"github.com/cppla/newsboard/services"
	"github.com/cppla/newsboard/utils"
)

const adminEmail = "admin@example.com"

type fakeIdentity struct{}

func (fakeIdentity) AuthCodeURL(_ context.Context, state string) (string, error) {
	return "https://idp.test/authorize?state=" + url.QueryEscape(state), nil
}

func (fakeIdentity) Exchange(_ context.Context, code string) (*utils.IdentityClaims, error) {
	if code != "good" {
		return nil, errors.New("bad code")
	}
	return &utils.IdentityClaims{Subject: "idp|1", Email: "alice@example.com", Name: "Alice", Nickname: "al"}, nil
}

func (fakeIdentity) LogoutURL(returnTo string) string {
	return "https://idp.test/logout?returnTo=" + url.QueryEscape(returnTo)
}

type harness struct {
	db       *gorm.DB
	sessions *utils.SessionManager
	router   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	cfg := config.AppConfig{
		GinMode:            "test",
		RateLimitPerMinute: 1000,
		AllowedOrigins:     []string{"*"},
		AdminEmails:        []string{adminEmail},
		DBDriver:           "sqlite",
		DatabaseURI:        "file:" + name + "?mode=memory&cache=shared",
		LogLevel:           "silent",
	}
	db, err := config.OpenDatabase(cfg, models.All()...)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := utils.NewMemoryStore()
	cache := utils.NewResponseCache(store, "cache:", time.Minute)
	interactions := services.NewInteractionStore(db)
	sessions := utils.NewSessionManager(store, "test-secret", time.Hour)
	r := routes.SetupRouter(routes.Deps{
		Config:       cfg,
		DB:           db,
		Sessions:     sessions,
		States:       utils.NewStateStore(store, time.Minute),
		Cache:        cache,
		Events:       utils.NopPublisher{},
		Identity:     fakeIdentity{},
		Feed:         services.NewFeedEngine(db),
		Interactions: interactions,
		Posts:        services.NewPostService(db, interactions, cache, nil, nil),
		Users:        services.NewUserService(db, cfg.IsAdminEmail),
	})
	return &harness{db: db, sessions: sessions, router: r}
}

// login seeds a user and returns a cookie for a fresh session.
func (h *harness) login(t *testing.T, email, role string) *http.Cookie {
	t.Helper()
	u := models.User{Email: email, Name: email, Role: role}
	if err := h.db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token, err := h.sessions.Create(context.Background(), &utils.SessionData{
		UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: token}
}

func (h *harness) do(method, target, body string, cookie *http.Cookie, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) postJSON(target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, target, body, cookie, "application/json")
}

func (h *harness) postForm(target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, target, form.Encode(), cookie, "application/x-www-form-urlencoded")
}

func (h *harness) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := h.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestUpdateInteractionReturnsTally(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "bob@example.com", models.RoleUser)
	post := models.Post{UserEmail: "bob@example.com", Title: "Test Post", Content: "Test Content"}
	if err := h.db.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	id := jsonInt(int64(post.ID))

	steps := []struct {
		action          string
		likes, dislikes int64
	}{
		{"like", 1, 0},
		{"dislike", 0, 1},
		{"dislike", 0, 0},
	}
	for _, s := range steps {
		w := h.postJSON("/update_interaction", `{"id":`+id+`,"action":"`+s.action+`"}`, cookie)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d body %s", s.action, w.Code, w.Body.String())
		}
		var got services.Tally
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Likes != s.likes || got.Dislikes != s.dislikes {
			t.Fatalf("%s: got %+v want %d/%d", s.action, got, s.likes, s.dislikes)
		}
	}
	body := h.postJSON("/update_interaction", `{"id":`+id+`,"action":"like"}`, cookie).Body.String()
	if body != `{"new_like_count":1,"new_dislike_count":0}` {
		t.Fatalf("body = %s", body)
	}
}

func TestUpdateInteractionRequiresLogin(t *testing.T) {
	h := newHarness(t)
	w := h.postJSON("/update_interaction", `{"id":7,"action":"like"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	var resp utils.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Status != "error" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if n := h.count(t, &models.UserInteraction{}); n != 0 {
		t.Fatalf("interactions stored: %d", n)
	}
}

func TestUpdateInteractionRejectsBadPayload(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "bob@example.com", models.RoleUser)
	for _, body := range []string{`{"id":7,"action":"love"}`, `{"action":"like"}`, `not json`} {
		if w := h.postJSON("/update_interaction", body, cookie); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", body, w.Code)
		}
	}
}

func TestNewsFeedIsCachedUntilWrite(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "carol@example.com", models.RoleUser)
	if err := h.db.Create(&models.NewsItem{ID: 1, Title: "first", Time: 100, URL: services.NoURLSentinel}).Error; err != nil {
		t.Fatalf("seed news: %v", err)
	}

	feedLen := func() int {
		w := h.do(http.MethodGet, "/newsfeed", "", nil, "")
		if w.Code != http.StatusOK {
			t.Fatalf("newsfeed status %d", w.Code)
		}
		var rows []services.FeedRow
		if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
			t.Fatalf("decode feed: %v", err)
		}
		return len(rows)
	}

	if n := feedLen(); n != 1 {
		t.Fatalf("first read = %d rows", n)
	}
	if err := h.db.Create(&models.NewsItem{ID: 2, Title: "second", Time: 200, URL: services.NoURLSentinel}).Error; err != nil {
		t.Fatalf("seed news: %v", err)
	}
	if n := feedLen(); n != 1 {
		t.Fatalf("expected cached feed, got %d rows", n)
	}

	w := h.postForm("/create_post", url.Values{"title": {"hello"}, "content": {"world"}}, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/home" {
		t.Fatalf("create_post: %d %s", w.Code, w.Header().Get("Location"))
	}
	if n := feedLen(); n != 3 {
		t.Fatalf("after write = %d rows", n)
	}
}

func TestHomeRendersFeed(t *testing.T) {
	h := newHarness(t)
	if err := h.db.Create(&models.NewsItem{ID: 9, Title: "Launch day", Time: 100, URL: "https://example.com"}).Error; err != nil {
		t.Fatalf("seed news: %v", err)
	}
	w := h.do(http.MethodGet, "/", "", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Launch day") {
		t.Fatalf("home: %d", w.Code)
	}
	if w := h.do(http.MethodGet, "/nope", "", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", w.Code)
	}
}

func TestCreatePostRequiresTitle(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "dan@example.com", models.RoleUser)

	w := h.postForm("/create_post", url.Values{"title": {"  "}, "content": {"body"}}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if n := h.count(t, &models.Post{}); n != 0 {
		t.Fatalf("posts stored: %d", n)
	}

	w = h.postForm("/create_post", url.Values{"title": {"hi"}}, nil)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous create: %d %s", w.Code, w.Header().Get("Location"))
	}
}

func TestDeletePostPermissions(t *testing.T) {
	h := newHarness(t)
	author := h.login(t, "erin@example.com", models.RoleUser)
	other := h.login(t, "frank@example.com", models.RoleUser)
	admin := h.login(t, adminEmail, models.RoleAdmin)

	post := models.Post{UserEmail: "erin@example.com", Title: "mine", Content: "x"}
	if err := h.db.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	if err := h.db.Create(&models.NewsItem{ID: 42, Title: "news", Time: 1, URL: services.NoURLSentinel}).Error; err != nil {
		t.Fatalf("seed news: %v", err)
	}
	if err := h.db.Create(&models.UserInteraction{UserID: 1, ItemID: 42, Interaction: "like"}).Error; err != nil {
		t.Fatalf("seed vote: %v", err)
	}

	postBody := `{"id":` + jsonInt(int64(post.ID)) + `,"type":"post"}`
	cases := []struct {
		name   string
		body   string
		cookie *http.Cookie
		want   int
	}{
		{"anonymous", postBody, nil, http.StatusUnauthorized},
		{"bad type", `{"id":1,"type":"comment"}`, author, http.StatusBadRequest},
		{"not author", postBody, other, http.StatusForbidden},
		{"news as user", `{"id":42,"type":"news"}`, author, http.StatusForbidden},
		{"author", postBody, author, http.StatusOK},
		{"already gone", postBody, admin, http.StatusNotFound},
		{"news as admin", `{"id":42,"type":"news"}`, admin, http.StatusOK},
	}
	for _, tc := range cases {
		w := h.postJSON("/delete_post", tc.body, tc.cookie)
		if w.Code != tc.want {
			t.Fatalf("%s: status %d want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
	if n := h.count(t, &models.NewsItem{}); n != 0 {
		t.Fatalf("news remaining: %d", n)
	}
	if n := h.count(t, &models.UserInteraction{}); n != 0 {
		t.Fatalf("votes remaining: %d", n)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestUpdateUserRules(t *testing.T) {
	h := newHarness(t)
	self := h.login(t, "gina@example.com", models.RoleUser)
	h.login(t, "hank@example.com", models.RoleUser)
	admin := h.login(t, adminEmail, models.RoleAdmin)

	cases := []struct {
		name   string
		body   string
		cookie *http.Cookie
		want   int
	}{
		{"other user", `{"email":"hank@example.com","name":"H"}`, self, http.StatusForbidden},
		{"self role", `{"email":"gina@example.com","role":"Admin"}`, self, http.StatusForbidden},
		{"self name", `{"email":"gina@example.com","name":"Gina G"}`, self, http.StatusOK},
		{"admin role", `{"email":"hank@example.com","role":"Admin"}`, admin, http.StatusOK},
		{"admin bad role", `{"email":"hank@example.com","role":"Root"}`, admin, http.StatusBadRequest},
		{"missing email", `{"name":"x"}`, admin, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := h.postJSON("/update_user", tc.body, tc.cookie); w.Code != tc.want {
			t.Fatalf("%s: status %d want %d (%s)", tc.name, w.Code, tc.want, w.Body.String())
		}
	}

	var gina, hank models.User
	h.db.Where("email = ?", "gina@example.com").First(&gina)
	h.db.Where("email = ?", "hank@example.com").First(&hank)
	if gina.Name != "Gina G" || gina.Role != models.RoleUser {
		t.Fatalf("gina = %+v", gina)
	}
	if hank.Role != models.RoleAdmin || hank.Name != "hank@example.com" {
		t.Fatalf("hank = %+v", hank)
	}
}

func TestUpdateNicknameForm(t *testing.T) {
	h := newHarness(t)
	cookie := h.login(t, "ivy@example.com", models.RoleUser)

	w := h.postForm("/update_nickname", url.Values{"nickname": {"ivy<b>"}}, cookie)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/settings" {
		t.Fatalf("update_nickname: %d %s", w.Code, w.Header().Get("Location"))
	}
	var u models.User
	h.db.Where("email = ?", "ivy@example.com").First(&u)
	if u.Nickname != "ivy" {
		t.Fatalf("nickname = %q", u.Nickname)
	}

	w = h.do(http.MethodGet, "/settings", "", cookie, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Nickname updated successfully.") {
		t.Fatalf("settings: %d", w.Code)
	}
}

func TestSettingsRequiresLogin(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/settings", "", nil, "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("settings: %d %s", w.Code, w.Header().Get("Location"))
	}
}

func TestLoginCallbackLogout(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/login", "", nil, "")
	if w.Code != http.StatusFound {
		t.Fatalf("login status = %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Host != "idp.test" {
		t.Fatalf("login location = %q", w.Header().Get("Location"))
	}
	state := loc.Query().Get("state")

	w = h.do(http.MethodGet, "/callback?code=good&state="+url.QueryEscape(state), "", nil, "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/home" {
		t.Fatalf("callback: %d %s", w.Code, w.Header().Get("Location"))
	}
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatalf("no session cookie after callback")
	}
	var u models.User
	if err := h.db.Where("email = ?", "alice@example.com").First(&u).Error; err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.Name != "Alice" || u.Role != models.RoleUser {
		t.Fatalf("user = %+v", u)
	}
	if w := h.do(http.MethodGet, "/settings", "", cookie, ""); w.Code != http.StatusOK {
		t.Fatalf("settings after login: %d", w.Code)
	}

	// state is single use
	w = h.do(http.MethodGet, "/callback?code=good&state="+url.QueryEscape(state), "", nil, "")
	if replay := sessionCookie(w); replay != nil {
		sess, err := h.sessions.Load(context.Background(), replay.Value)
		if err != nil || sess.Authenticated() {
			t.Fatalf("replayed state produced a login session: %+v %v", sess, err)
		}
	}

	w = h.do(http.MethodGet, "/logout", "", cookie, "")
	if w.Code != http.StatusFound || !strings.HasPrefix(w.Header().Get("Location"), "https://idp.test/logout?returnTo=") {
		t.Fatalf("logout: %d %s", w.Code, w.Header().Get("Location"))
	}
	if w := h.do(http.MethodGet, "/settings", "", cookie, ""); w.Code != http.StatusFound {
		t.Fatalf("settings after logout: %d", w.Code)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/callback?code=good&state=forged", "", nil, "")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/home" {
		t.Fatalf("callback: %d %s", w.Code, w.Header().Get("Location"))
	}
	if n := h.count(t, &models.User{}); n != 0 {
		t.Fatalf("users = %d", n)
	}
}

func TestStats(t *testing.T) {
	h := newHarness(t)
	h.login(t, "jo@example.com", models.RoleUser)
	w := h.do(http.MethodGet, "/stats", "", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	var got map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["user_count"] != 1 || got["post_count"] != 0 {
		t.Fatalf("stats = %v", got)
	}
}
