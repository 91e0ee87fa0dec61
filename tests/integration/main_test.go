//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tandemplan/mailroom/internal/app"
	"github.com/tandemplan/mailroom/internal/config"
	"github.com/tandemplan/mailroom/internal/testutil"
)

const testSecretKey = "test-secret-key"

var (
	testServer *httptest.Server
	testDB     *pgxpool.Pool

	// Fake send API the worker delivers through. Addresses starting
	// with "fail-" are rejected with a 422.
	mailAPI *fakeMailAPI
)

type sentEmail struct {
	To           string          `json:"to"`
	EmailType    string          `json:"email_type"`
	TemplateData json.RawMessage `json:"template_data"`
}

type fakeMailAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	received []sentEmail
}

func newFakeMailAPI() *fakeMailAPI {
	f := &fakeMailAPI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req sentEmail
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if strings.HasPrefix(req.To, "fail-") {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte("mailbox rejected"))
			return
		}

		f.mu.Lock()
		f.received = append(f.received, req)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "provider-" + uuid.New().String()})
	}))
	return f
}

func (f *fakeMailAPI) Received() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.received...)
}

func (f *fakeMailAPI) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = nil
}

// newServiceClient returns a test client authenticated as the scheduler.
func newServiceClient(t *testing.T) *testutil.Client {
	t.Helper()
	return testutil.NewClient(testServer.URL).WithToken(testutil.ServiceToken(t, testSecretKey))
}

func cleanTables(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`TRUNCATE email_queue, expenses, tasks, milestones, roadmaps, notification_prefs, users CASCADE`)
	if err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	mailAPI.Reset()
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	mailAPI = newFakeMailAPI()
	defer mailAPI.server.Close()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		Auth: config.AuthConfig{
			SecretKey: testSecretKey,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Queue: config.QueueConfig{
			DefaultBatchSize:  50,
			MaxBatchSize:      500,
			VisibilityTimeout: 5 * time.Minute,
		},
		Digest: config.DigestConfig{
			WindowDays: 7,
		},
		Transport: config.TransportConfig{
			BaseURL:       mailAPI.server.URL,
			APIKey:        "test-api-key",
			Timeout:       5 * time.Second,
			RatePerSecond: 1000,
		},
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	testServer = httptest.NewServer(application.Router())

	code := m.Run()

	testServer.Close()
	testDB.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}

	os.Exit(code)
}
