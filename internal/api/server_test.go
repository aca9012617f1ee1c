package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"feed_notifier/internal/domain"
	"feed_notifier/internal/scheduler"
	"feed_notifier/internal/scheduler/mocks"
	"feed_notifier/internal/storage/memory"
)

type APITestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	fetcher *mocks.MockFetcher
	store   *memory.NotifierStore
	sched   *scheduler.Scheduler
	httpSrv *httptest.Server
}

func (s *APITestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.store = memory.NewNotifierStore()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.sched = scheduler.New(s.fetcher, s.store, nil, logger, scheduler.Config{FetchTimeout: 5 * time.Second})

	srv := NewServer(s.sched, s.store, logger)
	s.httpSrv = httptest.NewServer(srv.Router())
}

func (s *APITestSuite) TearDownTest() {
	s.httpSrv.Close()
	s.sched.Close()
	time.Sleep(20 * time.Millisecond)
	s.ctrl.Finish()
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *string         `json:"error"`
}

func (s *APITestSuite) do(method, path string, body any) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.httpSrv.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&env))
	s.Equal(resp.StatusCode, env.Status)
	return resp.StatusCode, env
}

func (s *APITestSuite) expectFetch(d *domain.Feed) {
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(d, nil).
		AnyTimes()
}

func sampleDoc() *domain.Feed {
	return &domain.Feed{
		Title:       "Example Blog",
		Description: "desc",
		Link:        "https://example.com",
		Items: []domain.Item{
			{GUID: "a", Title: "A", Link: "https://example.com/a"},
			{GUID: "b", Title: "B", Link: "https://example.com/b"},
		},
	}
}

func subscribeBody(id int64) map[string]any {
	body := map[string]any{
		"url":      "https://example.com/feed.xml",
		"interval": 3600000,
		"title":    "My Feed",
	}
	if id != 0 {
		body["id"] = id
	}
	return body
}

func (s *APITestSuite) TestSubscribe() {
	s.expectFetch(sampleDoc())

	code, env := s.do(http.MethodPost, "/api/feeds", subscribeBody(42))
	s.Equal(http.StatusOK, code)
	s.Nil(env.Error)

	var n domain.Notifier
	s.Require().NoError(json.Unmarshal(env.Data, &n))
	s.Equal(int64(42), n.ID)
	s.Equal("My Feed", n.Title)
	s.Equal(domain.StatusRunning, n.Status)
	s.Len(n.Items, 2)
}

func (s *APITestSuite) TestSubscribe_InvalidInterval() {
	code, env := s.do(http.MethodPost, "/api/feeds", map[string]any{
		"url":      "https://example.com/feed.xml",
		"interval": 0,
	})
	s.Equal(http.StatusBadRequest, code)
	s.Require().NotNil(env.Error)
	s.Contains(*env.Error, "interval")
}

func (s *APITestSuite) TestSubscribe_FetchFailure() {
	s.fetcher.EXPECT().
		Fetch(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	code, env := s.do(http.MethodPost, "/api/feeds", subscribeBody(0))
	s.Equal(http.StatusInternalServerError, code)
	s.Require().NotNil(env.Error)
	s.Contains(*env.Error, "connection refused")
}

func (s *APITestSuite) TestListAndGet() {
	s.expectFetch(sampleDoc())
	s.do(http.MethodPost, "/api/feeds", subscribeBody(1))
	s.do(http.MethodPost, "/api/feeds", subscribeBody(2))

	code, env := s.do(http.MethodGet, "/api/feeds", nil)
	s.Equal(http.StatusOK, code)

	var all []domain.Notifier
	s.Require().NoError(json.Unmarshal(env.Data, &all))
	s.Len(all, 2)

	code, env = s.do(http.MethodGet, "/api/feeds/2", nil)
	s.Equal(http.StatusOK, code)

	var n domain.Notifier
	s.Require().NoError(json.Unmarshal(env.Data, &n))
	s.Equal(int64(2), n.ID)
}

func (s *APITestSuite) TestGet_UnknownID() {
	code, env := s.do(http.MethodGet, "/api/feeds/404", nil)
	s.Equal(http.StatusNotFound, code)
	s.Require().NotNil(env.Error)
}

func (s *APITestSuite) TestGet_BadID() {
	code, _ := s.do(http.MethodGet, "/api/feeds/abc", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *APITestSuite) TestPauseAndResume() {
	s.expectFetch(sampleDoc())
	s.do(http.MethodPost, "/api/feeds", subscribeBody(1))

	code, env := s.do(http.MethodPost, "/api/feeds/1/pause", nil)
	s.Equal(http.StatusOK, code)

	var n domain.Notifier
	s.Require().NoError(json.Unmarshal(env.Data, &n))
	s.Equal(domain.StatusPaused, n.Status)

	code, env = s.do(http.MethodPost, "/api/feeds/1/resume", nil)
	s.Equal(http.StatusOK, code)
	s.Require().NoError(json.Unmarshal(env.Data, &n))
	s.Equal(domain.StatusRunning, n.Status)
}

func (s *APITestSuite) TestUpdateInterval() {
	s.expectFetch(sampleDoc())
	s.do(http.MethodPost, "/api/feeds", subscribeBody(1))

	code, env := s.do(http.MethodPut, "/api/feeds/1/interval", map[string]any{"interval": 7200000})
	s.Equal(http.StatusOK, code)

	var n domain.Notifier
	s.Require().NoError(json.Unmarshal(env.Data, &n))
	s.Equal(int64(7200000), n.Interval)

	code, _ = s.do(http.MethodPut, "/api/feeds/1/interval", map[string]any{"interval": -1})
	s.Equal(http.StatusBadRequest, code)
}

func (s *APITestSuite) TestUnsubscribe() {
	s.expectFetch(sampleDoc())
	s.do(http.MethodPost, "/api/feeds", subscribeBody(1))

	code, env := s.do(http.MethodDelete, "/api/feeds/1", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("null", string(bytes.TrimSpace(env.Data)))

	code, _ = s.do(http.MethodGet, "/api/feeds/1", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APITestSuite) TestExportedRecordCarriesNoTimerHandle() {
	s.expectFetch(sampleDoc())
	s.do(http.MethodPost, "/api/feeds", subscribeBody(1))

	_, env := s.do(http.MethodGet, "/api/feeds/1", nil)

	var raw map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &raw))
	s.Contains(raw, "status")
	s.NotContains(raw, "intervalId")
}
