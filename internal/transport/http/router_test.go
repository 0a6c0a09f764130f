package httptransport

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	distservice "reliefcore/internal/distribution/service"
	"reliefcore/internal/distribution/store/ledger"
	"reliefcore/internal/platform/middleware"
	regservice "reliefcore/internal/registration/service"
	"reliefcore/internal/registration/store/identity"
	"reliefcore/internal/registration/store/record"
)

const testSigningKey = "router-test-signing-key"

// RouterSuite drives the full HTTP surface over in-memory stores: real
// services, real middleware, real JSON envelopes.
type RouterSuite struct {
	suite.Suite
	handler http.Handler
	token   string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	records := record.NewInMemory()

	registration := regservice.NewService(records, identity.NewInMemory(), regservice.WithLogger(log))
	distribution := distservice.NewService(
		ledger.NewInMemory(),
		records,
		distservice.NewEvaluator(map[string]time.Duration{"WATER": 24 * time.Hour}),
		distservice.WithLogger(log),
	)

	s.handler = NewRouter(Deps{
		Registration: registration,
		Distribution: distribution,
		Logger:       log,
		JWTValidator: middleware.NewHMACValidator(testSigningKey),
	})
	s.token = s.mintToken(uuid.NewString())
}

func (s *RouterSuite) mintToken(agentID string) string {
	claims := jwt.MapClaims{
		"sub": agentID,
		"org": "relief-org",
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(w.Body).Decode(v))
}

func (s *RouterSuite) registerHousehold() (urid, lookupKey string) {
	w := s.do(http.MethodPost, "/households", map[string]any{
		"identity_hash":  strings.Repeat("ab", 32),
		"location":       "Sector 7",
		"household_size": 4,
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var resp struct {
		URID      string `json:"urid"`
		LookupKey string `json:"lookup_key"`
	}
	s.decode(w, &resp)
	return resp.URID, resp.LookupKey
}

func (s *RouterSuite) TestRegisterAndLookup() {
	urid, lookupKey := s.registerHousehold()
	s.Len(urid, 16)
	s.Len(lookupKey, 64)

	s.Run("lookup by identifier", func() {
		w := s.do(http.MethodGet, "/households/"+urid, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			URID   string `json:"urid"`
			Active bool   `json:"active"`
		}
		s.decode(w, &resp)
		s.Equal(urid, resp.URID)
		s.True(resp.Active)
	})

	s.Run("lookup by lookup key", func() {
		w := s.do(http.MethodGet, "/households/"+lookupKey, nil)
		s.Require().Equal(http.StatusOK, w.Code)
	})

	s.Run("unknown identifier", func() {
		w := s.do(http.MethodGet, "/households/FFFFFFFFFFFFFFFF", nil)
		s.Require().Equal(http.StatusNotFound, w.Code)

		var resp struct {
			Error string `json:"error"`
		}
		s.decode(w, &resp)
		s.Equal("not_found", resp.Error)
	})
}

func (s *RouterSuite) TestDuplicateRegistrationCarriesExistingIdentifier() {
	urid, _ := s.registerHousehold()

	w := s.do(http.MethodPost, "/households", map[string]any{
		"identity_hash":  strings.Repeat("ab", 32),
		"location":       "Another Camp",
		"household_size": 2,
	})
	s.Require().Equal(http.StatusConflict, w.Code)

	var resp struct {
		Error  string            `json:"error"`
		Detail map[string]string `json:"detail"`
	}
	s.decode(w, &resp)
	s.Equal("duplicate_identity", resp.Error)
	s.Equal(urid, resp.Detail["existing_urid"])
}

func (s *RouterSuite) TestDistributionFlow() {
	_, lookupKey := s.registerHousehold()

	payload := map[string]any{
		"lookup_key": lookupKey,
		"category":   "WATER",
		"quantity":   2,
		"location":   "Sector 7",
	}

	w := s.do(http.MethodPost, "/distributions", payload)
	s.Require().Equal(http.StatusCreated, w.Code)

	var created struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		AgentID  string `json:"agent_id"`
	}
	s.decode(w, &created)
	s.Equal("WATER", created.Category)
	s.NotEmpty(created.ID)
	s.NotEmpty(created.AgentID)

	s.Run("second distribution inside the window is denied", func() {
		w := s.do(http.MethodPost, "/distributions", payload)
		s.Require().Equal(http.StatusConflict, w.Code)

		var resp struct {
			Error  string            `json:"error"`
			Detail map[string]string `json:"detail"`
		}
		s.decode(w, &resp)
		s.Equal("not_eligible", resp.Error)
		s.NotEmpty(resp.Detail["retry_after_seconds"])
	})

	s.Run("eligibility reflects the cooldown", func() {
		w := s.do(http.MethodGet, "/eligibility?lookup_key="+lookupKey+"&category=WATER", nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			Eligible          bool   `json:"eligible"`
			CooldownRemaining string `json:"cooldown_remaining"`
		}
		s.decode(w, &resp)
		s.False(resp.Eligible)
		s.NotEmpty(resp.CooldownRemaining)
	})

	s.Run("summary covers every category", func() {
		w := s.do(http.MethodGet, "/eligibility?lookup_key="+lookupKey, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp map[string]struct {
			Eligible bool `json:"eligible"`
		}
		s.decode(w, &resp)
		s.Len(resp, 6)
		s.False(resp["WATER"].Eligible)
		s.True(resp["FOOD"].Eligible)
	})

	s.Run("history lists the event", func() {
		w := s.do(http.MethodGet, "/distributions/"+lookupKey, nil)
		s.Require().Equal(http.StatusOK, w.Code)

		var resp struct {
			Events []struct {
				ID string `json:"id"`
			} `json:"events"`
		}
		s.decode(w, &resp)
		s.Require().Len(resp.Events, 1)
		s.Equal(created.ID, resp.Events[0].ID)
	})
}

func (s *RouterSuite) TestDeactivateStopsDistributions() {
	urid, lookupKey := s.registerHousehold()

	w := s.do(http.MethodPost, "/households/"+urid+"/deactivate", nil)
	s.Require().Equal(http.StatusNoContent, w.Code)

	s.Run("deactivating twice conflicts", func() {
		w := s.do(http.MethodPost, "/households/"+urid+"/deactivate", nil)
		s.Require().Equal(http.StatusConflict, w.Code)
	})

	s.Run("distributions see the household as gone", func() {
		w := s.do(http.MethodPost, "/distributions", map[string]any{
			"lookup_key": lookupKey,
			"category":   "FOOD",
			"quantity":   1,
			"location":   "Sector 7",
		})
		s.Require().Equal(http.StatusNotFound, w.Code)
	})
}

func (s *RouterSuite) TestAuthRequired() {
	req := httptest.NewRequest(http.MethodGet, "/eligibility?lookup_key=x", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)

	s.Run("garbage token", func() {
		req := httptest.NewRequest(http.MethodGet, "/eligibility?lookup_key=x", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		s.handler.ServeHTTP(w, req)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RouterSuite) TestHealthz() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Status string `json:"status"`
	}
	s.decode(w, &resp)
	s.Equal("ok", resp.Status)
}
