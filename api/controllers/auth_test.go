package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pwvale/panel-backend/internal/auth"
	"github.com/pwvale/panel-backend/pkg/enums"
	pkgerrors "github.com/pwvale/panel-backend/pkg/errors"
)

type stubAuth struct {
	registerInput *auth.RegisterInput
	loginInput    *auth.LoginInput
	session       *auth.SessionDTO
	err           error
}

func (s *stubAuth) Register(ctx context.Context, input auth.RegisterInput) (*auth.SessionDTO, error) {
	s.registerInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func (s *stubAuth) Login(ctx context.Context, input auth.LoginInput) (*auth.SessionDTO, error) {
	s.loginInput = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func TestAuthRegister(t *testing.T) {
	stub := &stubAuth{session: &auth.SessionDTO{Token: "jwt", AccountID: 1, Name: "playerone", Role: enums.AccountRolePlayer}}
	handler := AuthRegister(stub, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"playerone","password":"hunter22"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if stub.registerInput == nil || stub.registerInput.Name != "playerone" {
		t.Fatalf("unexpected register input: %+v", stub.registerInput)
	}
}

func TestAuthRegister_ValidationRejectsShortName(t *testing.T) {
	handler := AuthRegister(&stubAuth{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register",
		strings.NewReader(`{"name":"ab","password":"hunter22"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAuthLogin(t *testing.T) {
	stub := &stubAuth{session: &auth.SessionDTO{Token: "jwt", AccountID: 1, Name: "playerone", Role: enums.AccountRolePlayer}}
	handler := AuthLogin(stub, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"name":"playerone","password":"hunter22"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if stub.loginInput == nil || stub.loginInput.Name != "playerone" {
		t.Fatalf("unexpected login input: %+v", stub.loginInput)
	}
}

func TestAuthLogin_BadCredentials(t *testing.T) {
	stub := &stubAuth{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	handler := AuthLogin(stub, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"name":"playerone","password":"wrong"}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
