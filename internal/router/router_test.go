package router

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bank-assistant/internal/auth"
	"github.com/iliyamo/bank-assistant/internal/chat"
	"github.com/iliyamo/bank-assistant/internal/handler"
	"github.com/iliyamo/bank-assistant/internal/query"
	"github.com/iliyamo/bank-assistant/internal/repository"
	"github.com/iliyamo/bank-assistant/internal/session"
)

const fixture = `customer_id,username,password_hash,first_name,last_name,email,account_type,account_status,balance,credit_score,risk_level,has_loans,loan_types,loan_amounts,monthly_payments,interest_rate,account_opened_date,last_transaction_date,preferred_contact_method,common_issues,security_question,security_answer
C001,jsmith,` + "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8" + `,John,Smith,john@example.com,checking,active,1500.50,720,low,yes,auto,15000.00,320.40,4.5,2020-01-15,2024-03-01,email,fraud alert,What is your pet's name?,Fluffy
C002,admin,admin123,Ada,Admin,ada@example.com,admin,active,0,800,low,no,none,0,0,0,2019-05-01,2024-03-02,phone,none,What city were you born in?,Paris
C003,mlee,pass1234,Mia,Lee,mia@example.com,savings,frozen,250.00,610,high,no,none,0,0,0,2021-07-01,2024-02-11,sms,fraud dispute,Favorite color?,Blue
`

type testServer struct {
	e       *echo.Echo
	csv     string
	now     time.Time
	chatURL string
}

func newTestServer(t *testing.T, chatURL string) *testServer {
	t.Helper()
	return newTestServerWith(t, chatURL, fixture)
}

func newTestServerWith(t *testing.T, chatURL, records string) *testServer {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(records), 0o644))

	fe := filepath.Join(dir, "FE")
	require.NoError(t, os.MkdirAll(filepath.Join(fe, "css"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(fe, "images"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(fe, "images", handler.LogoFile), []byte("\x89PNG"), 0o644))
	for _, name := range []string{"login.html", "small-bank-chat-backend.html", "admin_dashboard.html", "loan-calculator.html", "customer_profile.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(fe, name), []byte("<html>"+name+"</html>"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(fe, "css", "site.css"), []byte("body{}"), 0o644))

	ts := &testServer{csv: csvPath, now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), chatURL: chatURL}
	clock := func() time.Time { return ts.now }

	store := repository.NewCSVStore(csvPath)
	sessions := session.NewManager(session.NewMemoryStore(), session.Options{Secret: "test-secret", Now: clock})
	authSvc := auth.NewService(store, auth.Options{Now: clock})
	q := query.NewService(store)
	if chatURL == "" {
		chatURL = "http://127.0.0.1:1/api/generate"
	}

	e := echo.New()
	_, err := Setup(e, Deps{
		Store:    store,
		Sessions: sessions,
		Auth:     handler.NewAuthHandler(authSvc, sessions, nil, true),
		Chat:     handler.NewChatHandler(chat.NewClient(chatURL, "small-bank-chat", time.Second)),
		Customer: handler.NewCustomerHandler(q),
		Admin:    handler.NewAdminHandler(store, q),
		Pages:    handler.NewPageHandler(fe, sessions),
	})
	require.NoError(t, err)
	ts.e = e
	return ts
}

func (ts *testServer) do(method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	rec := ts.do(http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Result().Cookies()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func TestDuplicateRouteIsError(t *testing.T) {
	h := func(c echo.Context) error { return nil }
	err := Register(echo.New(), Deps{}, []Route{
		{Method: http.MethodGet, Path: "/api/health", Handler: h},
		{Method: http.MethodPost, Path: "/api/health", Handler: h},
		{Method: http.MethodGet, Path: "/api/health", Handler: h},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /api/health")
}

func TestTableHasNoDuplicates(t *testing.T) {
	routes := Table(Deps{Pages: &handler.PageHandler{}}, &handler.UtilityHandler{})
	assert.NoError(t, checkDuplicates(routes))
}

func TestLoginStatusLogout(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodPost, "/api/auth/login", `{"username":"jsmith","password":"password"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"username": "jsmith", "role": "customer", "name": "John Smith"}, body["user"])
	cookies := rec.Result().Cookies()

	status := decode(t, ts.do(http.MethodGet, "/api/auth/status", "", cookies))
	assert.Equal(t, true, status["authenticated"])

	rec = ts.do(http.MethodPost, "/api/auth/logout", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.True(t, c.MaxAge < 0, c.Name)
	}

	status = decode(t, ts.do(http.MethodGet, "/api/auth/status", "", cookies))
	assert.Equal(t, false, status["authenticated"])
	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodGet, "/api/customer/current", "", cookies).Code)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodPost, "/api/auth/login", `{"username":"jsmith","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decode(t, rec)["error"])

	rec = ts.do(http.MethodPost, "/api/auth/login", `{"username":"jsmith"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnauthenticatedVersusForbidden(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/api/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	customer := ts.login(t, "jsmith", "password")
	rec = ts.do(http.MethodGet, "/api/admin/stats", "", customer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin privileges required", decode(t, rec)["error"])

	admin := ts.login(t, "admin", "admin123")
	rec = ts.do(http.MethodGet, "/api/admin/stats", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["total_customers"])

	rec = ts.do(http.MethodGet, "/api/admin/customer/C003", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pass1234", decode(t, rec)["password_hash"], "admins see full records")

	rec = ts.do(http.MethodGet, "/api/admin/customer/C999", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Customer not found", decode(t, rec)["error"])
}

func TestExpiredSessionIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t, "")
	admin := ts.login(t, "admin", "admin123")

	ts.now = ts.now.Add(24*time.Hour + time.Second)
	for _, path := range []string{"/api/admin/customers", "/api/customer/current"} {
		rec := ts.do(http.MethodGet, path, "", admin)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCustomerEndpointsRedact(t *testing.T) {
	ts := newTestServer(t, "")
	cookies := ts.login(t, "jsmith", "password")

	rec := ts.do(http.MethodGet, "/api/customer/search?q=FRAUD", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["count"])
	assert.NotContains(t, rec.Body.String(), "password_hash")
	assert.NotContains(t, rec.Body.String(), "security_answer")

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/customer/search", "", cookies).Code)

	rec = ts.do(http.MethodGet, "/api/customer/current", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C001", decode(t, rec)["customer_id"])
	assert.NotContains(t, rec.Body.String(), "5e884898")

	loan := decode(t, ts.do(http.MethodGet, "/api/customer/my-loan", "", cookies))
	assert.Equal(t, true, loan["has_loan"])
	assert.Equal(t, 15000.0, loan["loan_amount"])

	rec = ts.do(http.MethodGet, "/api/customer/risk-level/high", "", cookies)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = ts.do(http.MethodGet, "/api/customer/stats", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account_types":{"checking":1,"admin":1,"savings":1}`)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"nobody"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decode(t, rec), "reset_token")

	rec = ts.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"mlee"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode(t, rec)["reset_token"].(string)
	require.NotEmpty(t, token)

	rec = ts.do(http.MethodPost, "/api/auth/reset-password", `{"username":"mlee","token":"`+token+`","new_password":"abc"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/reset-password", `{"username":"mlee","token":"`+token+`","new_password":"fresh-pass"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/auth/reset-password", `{"username":"mlee","token":"`+token+`","new_password":"again-pass"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.login(t, "mlee", "fresh-pass")

	data, err := os.ReadFile(ts.csv)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	orig := strings.Split(strings.TrimRight(fixture, "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], orig[0]+",reset_token,reset_token_expiry"))
	assert.Equal(t, orig[1]+",,", lines[1], "unrelated records are untouched")
	assert.Equal(t, orig[2]+",,", lines[2])
}

func TestSecurityQuestionDoesNotLeakUsers(t *testing.T) {
	ts := newTestServer(t, "")

	known := decode(t, ts.do(http.MethodGet, "/api/auth/get-security-question?username=mlee", "", nil))
	assert.Equal(t, "Favorite color?", known["security_question"])
	unknown := ts.do(http.MethodGet, "/api/auth/get-security-question?username=ghost", "", nil)
	assert.Equal(t, http.StatusOK, unknown.Code)

	wrong := ts.do(http.MethodPost, "/api/auth/verify-security-question", `{"username":"mlee","answer":"red"}`, nil)
	ghost := ts.do(http.MethodPost, "/api/auth/verify-security-question", `{"username":"ghost","answer":"red"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, ghost.Code)
	assert.Equal(t, wrong.Body.String(), ghost.Body.String())

	ok := ts.do(http.MethodPost, "/api/auth/verify-security-question", `{"username":"mlee","answer":"blue"}`, nil)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestChat(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		prompt = body.Prompt
		_, _ = w.Write([]byte(`{"response":"Hi John!"}`))
	}))
	defer srv.Close()
	ts := newTestServer(t, srv.URL)

	assert.Equal(t, http.StatusUnauthorized, ts.do(http.MethodPost, "/api/chat", `{"message":"hi"}`, nil).Code)

	cookies := ts.login(t, "jsmith", "password")
	rec := ts.do(http.MethodPost, "/api/chat", `{"message":"hi","history":[{"role":"user","content":"hello"}]}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi John!", decode(t, rec)["response"])
	assert.Contains(t, prompt, "You are speaking with John Smith")

	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/chat", `{"message":"  "}`, cookies).Code)
}

func TestChatUpstreamDown(t *testing.T) {
	ts := newTestServer(t, "")
	cookies := ts.login(t, "jsmith", "password")

	rec := ts.do(http.MethodPost, "/api/chat", `{"message":"hi"}`, cookies)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decode(t, rec), "error")

	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/api/test-connection", "", cookies).Code)
}

func TestLoanCalculate(t *testing.T) {
	ts := newTestServer(t, "")
	cookies := ts.login(t, "jsmith", "password")

	rec := ts.do(http.MethodPost, "/api/loan/calculate", `{"principal":100000,"rate":6,"years":30}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 599.55, decode(t, rec)["monthly_payment"])

	rec = ts.do(http.MethodPost, "/api/loan/calculate", `{"principal":0,"rate":6,"years":30}`, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["customer_count"])

	rec = ts.do(http.MethodGet, "/api/endpoints", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Endpoints []handler.Endpoint `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	paths := map[string]string{}
	for _, ep := range listing.Endpoints {
		paths[ep.Method+" "+ep.Path] = ep.Access
	}
	assert.Equal(t, "admin", paths["GET /api/admin/stats"])
	assert.Equal(t, "session", paths["POST /api/chat"])
	assert.Equal(t, "public", paths["GET /api/endpoints"])
	assert.NotContains(t, paths, "GET /login.html")

	rec = ts.do(http.MethodGet, "/api/customer/usernames", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, "")

	rec := ts.do(http.MethodGet, "/chat", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login.html", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(http.MethodGet, "/login.html", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	customer := ts.login(t, "jsmith", "password")
	rec = ts.do(http.MethodGet, "/admin", "", customer)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/chat", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(http.MethodGet, "/", "", customer)
	assert.Equal(t, "/chat", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(http.MethodGet, "/chat", "", customer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "small-bank-chat-backend.html")

	admin := ts.login(t, "admin", "admin123")
	rec = ts.do(http.MethodGet, "/login.html", "", admin)
	assert.Equal(t, "/admin", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(http.MethodGet, "/css/site.css", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/css/missing.css", "", nil).Code)
}

func TestErrorsUseJSONEnvelope(t *testing.T) {
	ts := newTestServer(t, "")
	ts.e.GET("/api/broken", func(c echo.Context) error { return errors.New("disk on fire") })
	ts.e.GET("/api/unencodable", func(c echo.Context) error { return c.JSON(http.StatusOK, math.NaN()) })
	ts.e.GET("/api/teapot", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := ts.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"error": "Not Found"}, decode(t, rec))

	rec = ts.do(http.MethodDelete, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decode(t, rec), "error")

	for _, path := range []string{"/api/broken", "/api/unencodable"} {
		rec = ts.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, map[string]any{"error": "internal server error"}, decode(t, rec), path)
	}

	rec = ts.do(http.MethodGet, "/api/teapot", "", nil)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", decode(t, rec)["error"])
}

func TestLoanCalculateRejectsOutOfRangeTerms(t *testing.T) {
	ts := newTestServer(t, "")
	cookies := ts.login(t, "jsmith", "password")

	for _, body := range []string{
		`{"principal":100000,"rate":6,"years":1000000}`,
		`{"principal":100000,"rate":100000,"years":30}`,
		`{"principal":100000,"rate":0,"years":1e18}`,
		`{"principal":100000,"rate":6,"years":2.5}`,
		`{"principal":1e308,"rate":6,"years":30}`,
	} {
		rec := ts.do(http.MethodPost, "/api/loan/calculate", body, cookies)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, decode(t, rec), "error", body)
	}
}

func TestSignedNumericColumnsRender(t *testing.T) {
	records := strings.Replace(fixture, ",checking,active,1500.50,720,", ",checking,active,+1500.50,+720,", 1)
	ts := newTestServerWith(t, "", records)
	cookies := ts.login(t, "jsmith", "password")

	rec := ts.do(http.MethodGet, "/api/customer/current", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, 1500.5, body["balance"])
	assert.Equal(t, 720.0, body["credit_score"])

	rec = ts.do(http.MethodGet, "/api/customer/search?q=fraud", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A rewrite of another record keeps the stored text.
	_ = ts.do(http.MethodPost, "/api/auth/forgot-password", `{"username":"mlee"}`, nil)
	data, err := os.ReadFile(ts.csv)
	require.NoError(t, err)
	assert.Contains(t, string(data), ",+1500.50,+720,")
}

func TestBankLogo(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(http.MethodGet, "/"+handler.LogoFile, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNG", rec.Body.String())
}

func TestLatestLoginWinsWithoutRoleHeader(t *testing.T) {
	ts := newTestServer(t, "")
	jar := map[string]*http.Cookie{}
	for _, user := range [][2]string{{"admin", "admin123"}, {"jsmith", "password"}} {
		for _, c := range ts.login(t, user[0], user[1]) {
			jar[c.Name] = c
		}
	}
	var cookies []*http.Cookie
	for _, c := range jar {
		cookies = append(cookies, c)
	}
	require.Len(t, cookies, 3)

	status := decode(t, ts.do(http.MethodGet, "/api/auth/status", "", cookies))
	assert.Equal(t, "jsmith", status["user"].(map[string]any)["username"])

	req := httptest.NewRequest(http.MethodGet, "/api/auth/status", nil)
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	req.Header.Set("X-Session-Role", "admin")
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	assert.Equal(t, "admin", decode(t, rec)["user"].(map[string]any)["username"])
}
