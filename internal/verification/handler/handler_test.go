package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycbridge/internal/verification/handler/mocks"
	"kycbridge/internal/verification/models"
	dErrors "kycbridge/pkg/domain-errors"
)

type CreateSessionHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestCreateSessionHandlerSuite(t *testing.T) {
	suite.Run(t, new(CreateSessionHandlerSuite))
}

func (s *CreateSessionHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CreateSessionHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CreateSessionHandlerSuite) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/create-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *CreateSessionHandlerSuite) decode(rr *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func (s *CreateSessionHandlerSuite) TestSuccess() {
	s.service.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *models.VerificationRequest) (*models.SessionResult, error) {
			s.Equal("Ana", req.FirstName)
			s.Equal("Silva", req.LastName)
			s.Equal("+5511999990000", req.RecipientHandle)
			return &models.SessionResult{VerificationURL: "https://verify.example/v/abc", SessionID: "sess-1"}, nil
		})

	rr := s.post(`{"firstName":"Ana","lastName":"Silva","phone":"+55 11 99999-0000"}`)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal(map[string]string{"status": "success", "verificationUrl": "https://verify.example/v/abc"}, s.decode(rr))
}

func (s *CreateSessionHandlerSuite) TestSnakeCaseNames() {
	s.service.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *models.VerificationRequest) (*models.SessionResult, error) {
			s.Equal("Ana", req.FirstName)
			s.Equal("Silva", req.LastName)
			return &models.SessionResult{VerificationURL: "https://verify.example/v/abc"}, nil
		})

	rr := s.post(`{"first_name":"Ana","last_name":"Silva","phone":"+5511999990000"}`)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *CreateSessionHandlerSuite) TestInvalidInput() {
	cases := map[string]string{
		"malformed json": `{"firstName":`,
		"missing phone":  `{"firstName":"Ana","lastName":"Silva"}`,
		"missing name":   `{"lastName":"Silva","phone":"+5511999990000"}`,
		"letters phone":  `{"firstName":"Ana","lastName":"Silva","phone":"call me"}`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rr := s.post(body)
			s.Equal(http.StatusBadRequest, rr.Code)
			s.NotEmpty(s.decode(rr)["error"])
		})
	}
}

func (s *CreateSessionHandlerSuite) TestServiceErrors() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not configured", dErrors.New(dErrors.CodeConfiguration, "verification provider is not configured"), http.StatusInternalServerError, "configuration_error"},
		{"provider rejected", dErrors.New(dErrors.CodeProviderRejected, "failed to communicate with verification provider"), http.StatusBadRequest, "provider_rejected"},
		{"provider unavailable", dErrors.New(dErrors.CodeProviderUnavailable, "failed to communicate with verification provider"), http.StatusBadGateway, "provider_unavailable"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			rr := s.post(`{"firstName":"Ana","lastName":"Silva","phone":"+5511999990000"}`)
			s.Equal(tc.status, rr.Code)
			s.Equal(tc.code, s.decode(rr)["error"])
		})
	}
}
