package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/vendor-portal/internal/mailer"
	"github.com/sells-group/vendor-portal/internal/model"
	"github.com/sells-group/vendor-portal/internal/store"
)

// recoveryTokenTTL bounds how long a password recovery token stays usable.
const recoveryTokenTTL = 10 * time.Minute

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		TaxID    string `json:"tax_id"`
		Password string `json:"password"`
		Category string `json:"category"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.TaxID == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "name, email, tax_id and password are required")
		return
	}

	if _, err := s.store.GetVendorByEmail(r.Context(), req.Email); err == nil {
		respondMessage(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		zap.L().Error("register lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to register vendor")
		return
	}
	if _, err := s.store.GetVendorByTaxID(r.Context(), req.TaxID); err == nil {
		respondMessage(w, http.StatusConflict, "tax id already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		zap.L().Error("register lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to register vendor")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("password hash failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to register vendor")
		return
	}

	vendor := model.Vendor{
		Name:         req.Name,
		Email:        req.Email,
		TaxID:        req.TaxID,
		PasswordHash: string(hash),
		Category:     req.Category,
	}
	if err := s.store.CreateVendor(r.Context(), &vendor); err != nil {
		zap.L().Error("vendor create failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to register vendor")
		return
	}

	zap.L().Info("vendor registered", zap.String("vendor", vendor.ID), zap.String("email", vendor.Email))
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "vendor registered",
		"id":      vendor.ID,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	vendor, err := s.store.GetVendorByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zap.L().Error("login lookup failed", zap.Error(err))
		}
		respondMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(vendor.PasswordHash), []byte(req.Password)) != nil {
		respondMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.Issue(vendor.ID, "")
	if err != nil {
		zap.L().Error("token issue failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	allowed := false
	for _, candidate := range s.cfg.AdminEmails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email {
			allowed = true
			break
		}
	}
	if !allowed ||
		bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)) != nil {
		respondMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.auth.Issue(email, roleAdmin)
	if err != nil {
		zap.L().Error("token issue failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"email":        email,
	})
}

// newRecoveryToken generates the 6-digit numeric token sent by email.
func newRecoveryToken() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func (s *Server) handlePasswordRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		respondMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	vendor, err := s.store.GetVendorByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "vendor not found")
			return
		}
		zap.L().Error("recovery lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to start password recovery")
		return
	}

	token, err := newRecoveryToken()
	if err != nil {
		zap.L().Error("recovery token generation failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to start password recovery")
		return
	}
	expires := time.Now().UTC().Add(recoveryTokenTTL)
	if err := s.store.SetVendorRecovery(r.Context(), vendor.ID, token, &expires); err != nil {
		zap.L().Error("recovery token persist failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to start password recovery")
		return
	}

	s.mailer.Send(r.Context(), vendor.Email, "Recuperação de Senha",
		mailer.RecoveryEmail(vendor.Name, token))
	respondMessage(w, http.StatusOK, "recovery token sent by email")
}

func (s *Server) handlePasswordValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		respondMessage(w, http.StatusBadRequest, "token is required")
		return
	}

	if _, err := s.store.GetVendorByRecoveryToken(r.Context(), req.Token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "invalid or expired token")
			return
		}
		zap.L().Error("token validation failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to validate token")
		return
	}
	respondMessage(w, http.StatusOK, "token valid")
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Token == "" || req.NewPassword == "" {
		respondMessage(w, http.StatusBadRequest, "token and new_password are required")
		return
	}

	vendor, err := s.store.GetVendorByRecoveryToken(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "invalid or expired token")
			return
		}
		zap.L().Error("reset lookup failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("password hash failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	if err := s.store.SetVendorPassword(r.Context(), vendor.ID, string(hash)); err != nil {
		zap.L().Error("password update failed", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, "failed to reset password")
		return
	}
	respondMessage(w, http.StatusOK, "password reset")
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Subject == "" || req.Message == "" {
		respondMessage(w, http.StatusBadRequest, "all fields are required")
		return
	}
	if s.cfg.ContactRecipient == "" {
		respondMessage(w, http.StatusServiceUnavailable, "contact relay is not configured")
		return
	}

	s.mailer.Send(r.Context(), s.cfg.ContactRecipient, "Portal de Fornecedores: "+req.Subject,
		mailer.ContactEmail(req.Name, req.Email, req.Message))
	respondMessage(w, http.StatusOK, "message sent")
}
