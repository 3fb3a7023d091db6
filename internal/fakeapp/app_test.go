package fakeapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/creditverify/browser"
)

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, opts Options) (*App, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	app := New(ctx, opts, nil)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)
	return app, srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// login 走完账号 + OTP 两步，返回 token
func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	var lr loginResponse
	status := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "admin"}, &lr)
	require.Equal(t, http.StatusOK, status)
	code, ok := browser.ParseOTP(lr.OTPMessage)
	require.True(t, ok, "otp message %q", lr.OTPMessage)

	var or otpResponse
	status = doJSON(t, srv, http.MethodPost, "/api/otp", "", otpRequest{Challenge: lr.Challenge, OTP: code}, &or)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, or.Token)
	return or.Token
}

func TestApp_ServesIndex(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = srv.Client().Get(srv.URL + "/app.js")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_LoginIssuesOTPMessage(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	var lr loginResponse
	status := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "admin"}, &lr)

	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, lr.Challenge)
	assert.True(t, strings.HasPrefix(lr.OTPMessage, "Your OTP is: "))
	code, ok := browser.ParseOTP(lr.OTPMessage)
	require.True(t, ok)
	assert.Len(t, code, otpDigits)
}

func TestApp_LoginRejectsBadCredentials(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	var eb errorBody
	status := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "nope"}, &eb)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Error: Invalid credentials", eb.Error)

	status = doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{}, &eb)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Error: Please enter username and password", eb.Error)
}

func TestApp_SuppressOTPDialog(t *testing.T) {
	_, srv := newTestApp(t, Options{SuppressOTPDialog: true, HideOTPField: true})
	var lr loginResponse
	status := doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "admin"}, &lr)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, lr.OTPMessage)

	var cfg clientConfig
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/api/config", "", nil, &cfg))
	assert.True(t, cfg.HideOTPField)
}

func TestApp_OTPIsSingleUse(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	var lr loginResponse
	doJSON(t, srv, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "admin"}, &lr)
	code, _ := browser.ParseOTP(lr.OTPMessage)

	var eb errorBody
	status := doJSON(t, srv, http.MethodPost, "/api/otp", "", otpRequest{Challenge: lr.Challenge, OTP: ""}, &eb)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Error: Invalid OTP", eb.Error)

	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/api/otp", "", otpRequest{Challenge: lr.Challenge, OTP: code}, nil))
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodPost, "/api/otp", "", otpRequest{Challenge: lr.Challenge, OTP: code}, nil))
}

func TestApp_ChequesRequireToken(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodGet, "/api/cheques", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodGet, "/api/cheques", "not-a-jwt", nil, nil))
}

func TestApp_ExpiredTokenRejected(t *testing.T) {
	var skew atomic.Int64
	clock := func() time.Time { return testNow.Add(time.Duration(skew.Load())) }
	_, srv := newTestApp(t, Options{TokenTTL: time.Minute, Now: clock})
	token := login(t, srv)

	skew.Store(int64(2 * time.Minute))
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodGet, "/api/cheques", token, nil, nil))
}

func TestApp_AddAndListCheques(t *testing.T) {
	app, srv := newTestApp(t, Options{})
	token := login(t, srv)

	req := addChequeRequest{
		Number: "CHK123456", Bank: "BOC", Amount: "50000", Name: "John Doe",
		Contact: "0771234567", Date: "2026-10-15",
	}
	var created ChequeView
	require.Equal(t, http.StatusCreated, doJSON(t, srv, http.MethodPost, "/api/cheques", token, req, &created))
	assert.Equal(t, "Due Soon", created.Bucket)
	assert.Equal(t, "LKR 50000.00", created.AmountLabel)
	assert.Equal(t, ChequeComing, created.Type)

	given := req
	given.Number, given.Amount, given.Type, given.Date = "CHK9", "1250.5", ChequeGiven, "2026-10-13"
	require.Equal(t, http.StatusCreated, doJSON(t, srv, http.MethodPost, "/api/cheques", token, given, nil))

	var list ChequeList
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodGet, "/api/cheques", token, nil, &list))
	require.Len(t, list.Cheques, 2)
	assert.Equal(t, "Overdue", list.Cheques[1].Bucket)
	assert.Equal(t, "LKR 50000.00", list.ComingTotal)
	assert.Equal(t, "LKR 1250.50", list.GivenTotal)
	assert.Len(t, app.Cheques(), 2)
}

func TestApp_AddChequeValidation(t *testing.T) {
	_, srv := newTestApp(t, Options{})
	token := login(t, srv)

	tests := []struct {
		name string
		req  addChequeRequest
		want string
	}{
		{"missing fields", addChequeRequest{Number: "CHK1"}, "Error: All fields are required"},
		{"bad amount", addChequeRequest{Number: "1", Bank: "b", Amount: "-3", Name: "n", Contact: "c", Date: "2026-10-15"}, "Error: Invalid amount"},
		{"bad date", addChequeRequest{Number: "1", Bank: "b", Amount: "3", Name: "n", Contact: "c", Date: "15/10/2026"}, "Error: Invalid due date"},
		{"bad type", addChequeRequest{Number: "1", Bank: "b", Amount: "3", Name: "n", Contact: "c", Date: "2026-10-15", Type: "lost"}, "Error: Invalid check type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var eb errorBody
			assert.Equal(t, http.StatusBadRequest, doJSON(t, srv, http.MethodPost, "/api/cheques", token, tt.req, &eb))
			assert.Equal(t, tt.want, eb.Error)
		})
	}
}

func TestApp_LoginRateLimited(t *testing.T) {
	_, srv := newTestApp(t, Options{AuthRPS: 0.001, AuthBurst: 2})
	bad := loginRequest{Username: "admin", Password: "x"}
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodPost, "/api/login", "", bad, nil))
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, srv, http.MethodPost, "/api/login", "", bad, nil))

	var eb errorBody
	assert.Equal(t, http.StatusTooManyRequests, doJSON(t, srv, http.MethodPost, "/api/login", "", bad, &eb))
	assert.Equal(t, "Error: Too many attempts", eb.Error)
}

func TestRecovery(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), Recovery(zap.NewNop()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateOTP(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}
