package fakeapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/syncbridge/internal/client/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userContextKey = "fakeapi.user"

// AddUser creates an account and returns its id.
func (s *Server) AddUser(email, password, displayName string, role models.Role) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.users[id] = &user{ID: id, Email: email, Password: password, DisplayName: displayName, Role: role}
	return id
}

// AddLicense makes key available for one registration or reactivation.
func (s *Server) AddLicense(key string) {
	s.mu.Lock()
	s.licenses[key] = false
	s.mu.Unlock()
}

// TokenFor mints a valid bearer token for userID.
func (s *Server) TokenFor(userID int64) string {
	s.mu.Lock()
	u := s.users[userID]
	s.mu.Unlock()
	role := models.RoleClient
	if u != nil {
		role = u.Role
	}
	tok, err := s.mint(userID, role)
	if err != nil {
		panic(err)
	}
	return tok
}

// DeleteUser removes an account; tokens issued for it stop working.
func (s *Server) DeleteUser(id int64) {
	s.mu.Lock()
	delete(s.users, id)
	s.mu.Unlock()
}

func (s *Server) mint(userID int64, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// verify returns the user behind a bearer token.
func (s *Server) verify(token string) (*user, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, errors.New("bad subject")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[int64(sub)]
	if !found {
		return nil, errors.New("unknown user")
	}
	cp := *u
	return &cp, nil
}

func (s *Server) requireAuth(c *gin.Context) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Not authenticated")
		return
	}
	u, err := s.verify(parts[1])
	if err != nil {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
		return
	}
	c.Set(userContextKey, u)
	c.Next()
}

func currentUser(c *gin.Context) *user {
	v, _ := c.Get(userContextKey)
	u, _ := v.(*user)
	return u
}

func (s *Server) findByEmail(email string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *Server) register(c *gin.Context) {
	var in models.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Password == "" {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "email and password are required")
		return
	}

	s.mu.Lock()
	if s.findByEmail(in.Email) != nil {
		s.mu.Unlock()
		fail(c, http.StatusConflict, "CONFLICT", "Email exists")
		return
	}
	used, known := s.licenses[in.LicenseKey]
	if !known || used {
		s.mu.Unlock()
		fail(c, http.StatusForbidden, "FORBIDDEN", "License invalid or not available")
		return
	}
	s.licenses[in.LicenseKey] = true
	id := s.newID()
	s.users[id] = &user{ID: id, Email: in.Email, Password: in.Password, DisplayName: in.DisplayName, Role: models.RoleClient}
	s.mu.Unlock()

	tok, err := s.mint(id, models.RoleClient)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	ok(c, gin.H{"user_id": id, "role": models.RoleClient, "access_token": tok, "license_status": "active"},
		"User registered and activated")
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid body")
		return
	}

	s.mu.Lock()
	u := s.findByEmail(in.Email)
	s.mu.Unlock()
	if u == nil || u.Password != in.Password {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		return
	}

	tok, err := s.mint(u.ID, u.Role)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	ok(c, gin.H{"access_token": tok, "role": u.Role}, "Login success")
}

func (s *Server) reactivate(c *gin.Context) {
	var in models.ReactivateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.findByEmail(in.Email)
	if u == nil || u.Password != in.Password {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		return
	}
	used, known := s.licenses[in.LicenseKey]
	if !known || used {
		fail(c, http.StatusForbidden, "FORBIDDEN", "License invalid or not available")
		return
	}
	s.licenses[in.LicenseKey] = true
	ok(c, gin.H{"user_id": u.ID, "role": u.Role, "license_status": "active"}, "License reactivated")
}

func (s *Server) me(c *gin.Context) {
	u := currentUser(c)
	ok(c, models.User{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Role: u.Role}, "")
}
