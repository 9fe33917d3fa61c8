// Helpers for running the local dev/test stack with testcontainers:
// MariaDB (schema from data/initdb), MinIO for note binaries, Mailpit as the
// SMTP relay for OTP mail. Used by cmd/testcontainers and integration tests.
// Expects environment variables to be loaded from .env files.

package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/noteshare-io/noteshare/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestContainers struct {
	Network          *testcontainers.DockerNetwork
	DBContainer      testcontainers.Container
	StorageContainer testcontainers.Container
	MailContainer    testcontainers.Container
}

func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.MailContainer != nil {
		if err := tc.MailContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Mailpit: %v", err)
		}
	}
	if tc.StorageContainer != nil {
		if err := tc.StorageContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MinIO: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MariaDB: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts the full stack. t may be nil when called
// from the standalone testcontainers command.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	// Fail early when no docker daemon is reachable
	docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err == nil {
		_, err = docker.Ping(ctx)
		docker.Close()
	}
	if err != nil {
		exitWithError(t, err, "Docker daemon is not reachable")
	}

	// Create a network
	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	testContainers.Network = nw
	networkName := nw.Name

	// MariaDB with the noteshare schema; the embedded DDL goes in via a temp
	// file so this works from any working directory
	ddlFile, err := os.CreateTemp("", "noteshare-ddl-*.sql")
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to write DDL temp file")
	}
	ddlPath := ddlFile.Name()
	defer os.Remove(ddlPath)
	if _, err := ddlFile.WriteString(data.InitdbMariaDBTables); err != nil {
		ddlFile.Close()
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to write DDL temp file")
	}
	ddlFile.Close()

	dbPassword := getEnvDefault("DB_PASSWORD", "noteshare")
	dbPort, err := nat.NewPort("tcp", getEnvDefault("DB_PORT", "3306"))
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create DB port")
	}
	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mariadb:11",
			ExposedPorts: []string{dbPort.Port() + "/tcp"},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"db"},
			},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": dbPassword,
				"MARIADB_DATABASE":      getEnvDefault("DB_DATABASE", "noteshare"),
			},
			Files: []testcontainers.ContainerFile{
				{
					HostFilePath:      ddlPath,
					ContainerFilePath: "/docker-entrypoint-initdb.d/002-ddl-tables.sql",
					FileMode:          0o644,
				},
			},
			WaitingFor: wait.ForListeningPort(dbPort).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start MariaDB")
	}
	testContainers.DBContainer = dbContainer

	if err := pingDB(ctx, dbContainer, dbPort, dbPassword); err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "MariaDB did not become ready")
	}

	// MinIO for note binaries and thumbnails
	storageContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"storage"},
			},
			Env: map[string]string{
				"MINIO_ROOT_USER":     getEnvDefault("STORAGE_ACCESS_KEY", "noteshare"),
				"MINIO_ROOT_PASSWORD": getEnvDefault("STORAGE_SECRET_KEY", "noteshare-secret"),
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start MinIO")
	}
	testContainers.StorageContainer = storageContainer

	// Mailpit as SMTP relay; OTP mail lands in its web UI on 8025
	mailContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "axllent/mailpit:latest",
			ExposedPorts: []string{"1025/tcp", "8025/tcp"},
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"mail"},
			},
			WaitingFor: wait.ForListeningPort("1025/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start Mailpit")
	}
	testContainers.MailContainer = mailContainer

	logEndpoints(t, testContainers)

	return testContainers, nil
}

// pingDB verifies MariaDB accepts connections with the configured credentials
func pingDB(ctx context.Context, c testcontainers.Container, port nat.Port, password string) error {
	host, err := c.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		return err
	}

	dsn := fmt.Sprintf("root:%s@tcp(%s:%s)/", password, host, mapped.Port())
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	deadline := time.Now().Add(time.Minute)
	for {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("ping timed out: %w", err)
		}
		time.Sleep(2 * time.Second)
	}
}

func logEndpoints(t *testing.T, tc *TestContainers) {
	ctx := context.Background()
	for name, spec := range map[string]struct {
		c    testcontainers.Container
		port string
	}{
		"mariadb": {tc.DBContainer, "3306/tcp"},
		"minio":   {tc.StorageContainer, "9000/tcp"},
		"mailpit": {tc.MailContainer, "8025/tcp"},
	} {
		host, err := spec.c.Host(ctx)
		if err != nil {
			continue
		}
		mapped, err := spec.c.MappedPort(ctx, nat.Port(spec.port))
		if err != nil {
			continue
		}
		logMessage(t, "%s available at %s:%s", name, host, mapped.Port())
	}
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func logMessage(t *testing.T, format string, args ...interface{}) {
	if t != nil {
		t.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func exitWithError(t *testing.T, err error, message string) {
	if t != nil {
		t.Fatalf("%s: %v", message, err)
		return
	}
	log.Fatalf("%s: %v", message, err)
}
