package fakeapp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenIssuer = "creditverify-fakeapp"
	otpDigits   = 6
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse 中 OTPMessage 由前端原样 alert
type loginResponse struct {
	Challenge  string `json:"challenge"`
	OTPMessage string `json:"otp_message,omitempty"`
}

type otpRequest struct {
	Challenge string `json:"challenge"`
	OTP       string `json:"otp"`
}

type otpResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Error: Invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Error: Please enter username and password")
		return
	}
	if !equal(req.Username, a.opts.Username) || !equal(req.Password, a.opts.Password) {
		a.logger.Info("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Error: Invalid credentials")
		return
	}

	code, err := generateOTP(otpDigits)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	challenge := uuid.NewString()

	a.mu.Lock()
	a.challenges[challenge] = code
	a.mu.Unlock()

	resp := loginResponse{Challenge: challenge}
	if !a.opts.SuppressOTPDialog {
		resp.OTPMessage = "Your OTP is: " + code
	}
	a.logger.Info("otp issued", zap.String("challenge", challenge), zap.Bool("dialog", !a.opts.SuppressOTPDialog))
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Error: Invalid request")
		return
	}

	a.mu.Lock()
	code, ok := a.challenges[req.Challenge]
	if ok && req.OTP != "" && equal(req.OTP, code) {
		// 一次性
		delete(a.challenges, req.Challenge)
	} else {
		ok = false
	}
	a.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "Error: Invalid OTP")
		return
	}

	token, err := a.issueToken(a.opts.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, otpResponse{Token: token, Username: a.opts.Username})
}

// issueToken 签发 HS256 会话 token
func (a *App) issueToken(subject string) (string, error) {
	now := a.opts.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.opts.TokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// generateOTP 生成定长数字验证码
func generateOTP(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
