package routing

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
	"github.com/pelyams/simpler_recommendation_service/internal/telemetry"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListRecommendations(ctx context.Context, productIds []string) ([]string, *domain.ServiceError) {
	args := m.Called(ctx, productIds)
	return args.Get(0).([]string), args.Get(1).(*domain.ServiceError)
}

type MockFlagAdmin struct {
	mock.Mock
}

func (m *MockFlagAdmin) SetFlag(ctx context.Context, flag domain.Flag) error {
	args := m.Called(ctx, flag)
	return args.Error(0)
}

func (m *MockFlagAdmin) DeleteFlag(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

type HandlerTestSuite struct {
	suite.Suite
	mockService   *MockService
	mockFlagAdmin *MockFlagAdmin
	registry      *prometheus.Registry
	server        *httptest.Server
	client        *http.Client
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	s.mockService = new(MockService)
	s.mockFlagAdmin = new(MockFlagAdmin)
	s.registry = prometheus.NewRegistry()
	telemetry.NewPrometheusRecorder(s.registry).AddRecommendations(3, "catalog")

	router := NewRouter(
		NewRecommendationHandler(s.mockService),
		NewRequestLogger(0),
		WithMetrics(s.registry),
		WithFlagAdmin(NewFlagHandler(s.mockFlagAdmin)),
	)
	s.server = httptest.NewServer(router.SetupRoutes())
	s.client = &http.Client{Timeout: 5 * time.Second}
}

func (s *HandlerTestSuite) TearDownTest() {
	s.server.Close()
	s.mockService.AssertExpectations(s.T())
	s.mockFlagAdmin.AssertExpectations(s.T())
}

func (s *HandlerTestSuite) SetupSubTest() {
	s.mockService.ExpectedCalls = nil
	s.mockFlagAdmin.ExpectedCalls = nil
}

func (s *HandlerTestSuite) makeRequest(method, path string, body string) (*http.Response, error) {
	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.client.Do(req)
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *HandlerTestSuite) TestListRecommendations() {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		callerIds      []string
		result         []string
		serviceErr     *domain.ServiceError
		expectedStatus int
		expectedIds    []string
		expectedError  string
	}{
		{
			name:           "post - success",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"productIds":["A"]}`,
			callerIds:      []string{"A"},
			result:         []string{"B", "C"},
			expectedStatus: http.StatusOK,
			expectedIds:    []string{"B", "C"},
		},
		{
			name:           "post - degraded but served",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"productIds":["A"]}`,
			callerIds:      []string{"A"},
			result:         []string{"B"},
			serviceErr:     domain.NewServiceError(nil, []error{domain.ErrUnavailable}),
			expectedStatus: http.StatusOK,
			expectedIds:    []string{"B"},
		},
		{
			name:           "get - comma separated ids",
			method:         http.MethodGet,
			path:           "/recommendations?productIds=A,B",
			callerIds:      []string{"A,B"},
			result:         []string{},
			expectedStatus: http.StatusOK,
			expectedIds:    []string{},
		},
		{
			name:           "post - invalid body",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"productIds":"A"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
		{
			name:           "post - unknown field",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"ids":["A"]}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
		{
			name:           "post - catalog unavailable",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"productIds":[]}`,
			callerIds:      []string{},
			result:         []string(nil),
			serviceErr:     domain.NewServiceError(fmt.Errorf("%w: catalog down", domain.ErrUnavailable), nil),
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "Product catalog unavailable",
		},
		{
			name:           "post - lookup fault",
			method:         http.MethodPost,
			path:           "/recommendations",
			body:           `{"productIds":["A"]}`,
			callerIds:      []string{"A"},
			result:         []string(nil),
			serviceErr:     domain.NewServiceError(fmt.Errorf("%w: no name for B", domain.ErrLookupFault), nil),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			t := s.T()
			if tt.callerIds != nil {
				s.mockService.On("ListRecommendations", mock.Anything, tt.callerIds).Return(tt.result, tt.serviceErr).Once()
			}

			resp, err := s.makeRequest(tt.method, tt.path, tt.body)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
			if tt.expectedError != "" {
				body := decodeBody[map[string]string](t, resp)
				assert.Equal(t, tt.expectedError, body["error"])
				return
			}
			body := decodeBody[domain.RecommendationsResponse](t, resp)
			assert.Equal(t, tt.expectedIds, body.ProductIds)
			s.mockService.AssertExpectations(t)
		})
	}
}

func (s *HandlerTestSuite) TestHealth() {
	t := s.T()
	resp, err := s.makeRequest(http.MethodGet, "/health", "")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "SERVING"}, decodeBody[map[string]string](t, resp))
}

func (s *HandlerTestSuite) TestMetrics() {
	t := s.T()
	resp, err := s.makeRequest(http.MethodGet, "/metrics", "")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `app_recommendations_total{recommendation_type="catalog"} 3`)
}

func (s *HandlerTestSuite) TestRequestIdIsPropagated() {
	t := s.T()
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func (s *HandlerTestSuite) TestSetFlag() {
	tests := []struct {
		name           string
		path           string
		body           string
		flag           *domain.Flag
		storeErr       error
		expectedStatus int
	}{
		{
			name:           "set flag - success",
			path:           "/admin/flags/recommendationCache",
			body:           `{"enabled":true}`,
			flag:           &domain.Flag{Name: "recommendationCache", Enabled: true},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "set flag - missing state",
			path:           "/admin/flags/recommendationCache",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "set flag - store failure",
			path:           "/admin/flags/recommendationCache",
			body:           `{"enabled":false}`,
			flag:           &domain.Flag{Name: "recommendationCache", Enabled: false},
			storeErr:       domain.ErrInternalCache,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			t := s.T()
			if tt.flag != nil {
				s.mockFlagAdmin.On("SetFlag", mock.Anything, *tt.flag).Return(tt.storeErr).Once()
			}

			resp, err := s.makeRequest(http.MethodPut, tt.path, tt.body)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, *tt.flag, decodeBody[domain.Flag](t, resp))
			}
			s.mockFlagAdmin.AssertExpectations(t)
		})
	}
}

func (s *HandlerTestSuite) TestDeleteFlag() {
	tests := []struct {
		name           string
		storeErr       error
		expectedStatus int
	}{
		{name: "delete flag - success", expectedStatus: http.StatusNoContent},
		{name: "delete flag - not found", storeErr: domain.ErrNotFound, expectedStatus: http.StatusNotFound},
		{name: "delete flag - store failure", storeErr: domain.ErrInternalCache, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			t := s.T()
			s.mockFlagAdmin.On("DeleteFlag", mock.Anything, "recommendationCache").Return(tt.storeErr).Once()

			resp, err := s.makeRequest(http.MethodDelete, "/admin/flags/recommendationCache", "")
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			s.mockFlagAdmin.AssertExpectations(t)
		})
	}
}

// blockingService holds every call until release is closed.
type blockingService struct {
	mu      sync.Mutex
	running int
	peak    int
	release chan struct{}
}

func (b *blockingService) ListRecommendations(ctx context.Context, productIds []string) ([]string, *domain.ServiceError) {
	b.mu.Lock()
	b.running++
	b.peak = max(b.peak, b.running)
	b.mu.Unlock()

	<-b.release

	b.mu.Lock()
	b.running--
	b.mu.Unlock()
	return []string{}, nil
}

func TestWorkerLimit(t *testing.T) {
	svc := &blockingService{release: make(chan struct{})}
	router := NewRouter(NewRecommendationHandler(svc), NewRequestLogger(0), WithWorkers(2, 10, 5*time.Second))
	server := httptest.NewServer(router.SetupRoutes())
	defer server.Close()

	const requests = 6
	var wg sync.WaitGroup
	statuses := make(chan int, requests)
	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(server.URL+"/recommendations", "application/json", strings.NewReader(`{"productIds":[]}`))
			if err != nil {
				statuses <- 0
				return
			}
			resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}

	assert.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.running == 2
	}, 2*time.Second, 10*time.Millisecond)
	close(svc.release)
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	assert.Equal(t, 2, svc.peak)
}
