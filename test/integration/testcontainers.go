package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/directory-sync/pkg/bootstrap"
	"github.com/doodlesbykumbi/directory-sync/pkg/config"
	"github.com/doodlesbykumbi/directory-sync/pkg/db"
	"github.com/doodlesbykumbi/directory-sync/pkg/server"
	"github.com/doodlesbykumbi/directory-sync/pkg/server/endpoints"
)

// TokenSecret signs the bearer tokens the scenarios send.
const TokenSecret = "integration-secret"

// directoryFixture is the directory every scenario syncs from.
const directoryFixture = `
group:
  - id: 7c1e0a52-0000-4000-8000-000000000001
    dn: CN=Admins,OU=Groups,DC=example,DC=com
    attributes:
      cn: Admins
      description: Domain administrators
      member: [5f1d7a3e-0000-4000-8000-000000000001]
  - id: 7c1e0a52-0000-4000-8000-000000000002
    dn: CN=Developers,OU=Groups,DC=example,DC=com
    attributes:
      cn: Developers
      member: [5f1d7a3e-0000-4000-8000-000000000001, 5f1d7a3e-0000-4000-8000-000000000002]
      memberOf: [7c1e0a52-0000-4000-8000-000000000001]
user:
  - id: 5f1d7a3e-0000-4000-8000-000000000001
    dn: CN=alice,OU=People,DC=example,DC=com
    attributes:
      sAMAccountName: alice
      mail: alice@example.com
      givenName: Alice
      sn: Liddell
      memberOf: [7c1e0a52-0000-4000-8000-000000000001, 7c1e0a52-0000-4000-8000-000000000002]
  - id: 5f1d7a3e-0000-4000-8000-000000000002
    dn: CN=bob,OU=People,DC=example,DC=com
    attributes:
      sAMAccountName: bob
      mail: bob@example.com
      memberOf: [7c1e0a52-0000-4000-8000-000000000002]
`

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB            *gorm.DB
	RawDB         *sql.DB
	Container     testcontainers.Container
	ServerURL     string
	DatabaseURL   string // Connection string for the test database
	ConfigPath    string
	HTTPClient    *http.Client
	Cancel        context.CancelFunc
	ServerProcess *exec.Cmd
	InlineServer  *server.Server // For inline mode
}

// NewTestContext creates a new test context with PostgreSQL testcontainer.
// Modes:
//   - Binary mode (default): Set ADSYNC_BINARY to the path of the adsyncctl binary
//   - Inline mode: Set ADSYNC_INLINE=1 to run the server in-process (no binary needed)
func NewTestContext(ctx context.Context) (*TestContext, error) {
	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to find project root: %w", err)
	}
	migrationsDir := filepath.Join(projectRoot, "db", "migrations")

	inlineMode := os.Getenv("ADSYNC_INLINE") == "1"
	binaryPath := os.Getenv("ADSYNC_BINARY")

	if !inlineMode && binaryPath == "" {
		return nil, fmt.Errorf("Either ADSYNC_BINARY or ADSYNC_INLINE=1 is required.\n\nBinary mode:\n  go build -o adsyncctl ./cmd/adsyncctl\n  INTEGRATION_TEST=1 ADSYNC_BINARY=$(pwd)/adsyncctl go test -v ./test/integration/...\n\nInline mode:\n  INTEGRATION_TEST=1 ADSYNC_INLINE=1 go test -v ./test/integration/...")
	}

	if !inlineMode {
		if _, err := os.Stat(binaryPath); err != nil {
			return nil, fmt.Errorf("ADSYNC_BINARY path does not exist: %s", binaryPath)
		}
		log.Printf("Using binary: %s", binaryPath)
	} else {
		log.Println("Using inline server mode")
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("adsync_test"),
		tcpostgres.WithUsername("adsync"),
		tcpostgres.WithPassword("adsync"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	connStr := fmt.Sprintf("postgres://adsync:adsync@%s:%s/adsync_test?sslmode=disable", host, port.Port())

	if err := runMigrations(connStr, migrationsDir); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Connect with GORM for assertions
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rawDB, err := gormDB.DB()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get raw db: %w", err)
	}

	configPath, err := writeConfig()
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	serverPort := "18080"
	serverURL := fmt.Sprintf("http://127.0.0.1:%s", serverPort)

	var serverProcess *exec.Cmd
	var inlineServer *server.Server
	var cancel context.CancelFunc

	if inlineMode {
		inlineServer, cancel, err = startInlineServer(gormDB, connStr, configPath, serverPort)
		if err != nil {
			_ = pgContainer.Terminate(ctx)
			return nil, fmt.Errorf("failed to start inline server: %w", err)
		}
	} else {
		serverProcess, cancel, err = startBinary(binaryPath, connStr, configPath, serverPort)
		if err != nil {
			_ = pgContainer.Terminate(ctx)
			return nil, fmt.Errorf("failed to start server binary: %w", err)
		}
	}

	if err := waitForServer(serverURL, 30*time.Second); err != nil {
		cancel()
		if serverProcess != nil && serverProcess.Process != nil {
			_ = serverProcess.Process.Kill()
		}
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("server failed to become ready: %w", err)
	}

	return &TestContext{
		DB:            gormDB,
		RawDB:         rawDB,
		Container:     pgContainer,
		ServerURL:     serverURL,
		DatabaseURL:   connStr,
		ConfigPath:    configPath,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		Cancel:        cancel,
		ServerProcess: serverProcess,
		InlineServer:  inlineServer,
	}, nil
}

// writeConfig writes adsync.yml and the directory fixture to a temp dir.
func writeConfig() (string, error) {
	dir, err := os.MkdirTemp("", "adsync-integration-")
	if err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}
	fixturePath := filepath.Join(dir, "directory.yml")
	if err := os.WriteFile(fixturePath, []byte(directoryFixture), 0o600); err != nil {
		return "", fmt.Errorf("failed to write directory fixture: %w", err)
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	content := fmt.Sprintf(`directory:
  fixture: %s
resolve_memberships_in_batch: true
token_secret: %s
`, fixturePath, TokenSecret)
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return configPath, nil
}

// startInlineServer starts the server in-process (no binary needed)
func startInlineServer(gormDB *gorm.DB, dbURL, configPath, port string) (*server.Server, context.CancelFunc, error) {
	_ = os.Setenv("ADSYNC_AUDIT_DATABASE_URL", dbURL)

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{DB: gormDB})
	if err != nil {
		return nil, nil, err
	}

	s := server.NewServer(app, "127.0.0.1", port)
	endpoints.RegisterAll(s)

	go func() {
		_ = s.Start()
	}()

	cancel := func() {
		ctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = s.Shutdown(ctx)
		_ = app.Close()
	}
	return s, cancel, nil
}

// startBinary starts the adsyncctl server binary
func startBinary(binaryPath, dbURL, configPath, port string) (*exec.Cmd, context.CancelFunc, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Use --no-migrate since we already ran migrations in the test setup
	cmd := exec.CommandContext(ctx, binaryPath, "server", "--no-migrate", "-b", "127.0.0.1", "-p", port, "-c", configPath)
	cmd.Env = append(os.Environ(),
		"DATABASE_URL="+dbURL,
		"ADSYNC_AUDIT_DATABASE_URL="+dbURL,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to start binary: %w", err)
	}

	return cmd, cancel, nil
}

// waitForServer polls the server until it responds or times out
func waitForServer(serverURL string, timeout time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(serverURL + "/status")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("server did not become ready within %v", timeout)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Cancel != nil {
		tc.Cancel()
	}
	if tc.ServerProcess != nil && tc.ServerProcess.Process != nil {
		_ = tc.ServerProcess.Process.Kill()
		_ = tc.ServerProcess.Wait()
	}
	if tc.RawDB != nil {
		_ = tc.RawDB.Close()
	}
	if tc.ConfigPath != "" {
		_ = os.RemoveAll(filepath.Dir(tc.ConfigPath))
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// findProjectRoot locates the project root directory
func findProjectRoot() (string, error) {
	paths := []string{
		"../..",
		"..",
		".",
	}

	for _, p := range paths {
		goMod := filepath.Join(p, "go.mod")
		if _, err := os.Stat(goMod); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("project root not found (looking for go.mod)")
}

// runMigrations applies db/migrations the way "adsyncctl db migrate" does
func runMigrations(dbURL, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, db.MigrationURL(dbURL))
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
