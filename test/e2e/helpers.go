//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reliefworks/kioskhub/internal/api/handlers"
	"github.com/reliefworks/kioskhub/internal/bias"
	"github.com/reliefworks/kioskhub/internal/corpus"
	"github.com/reliefworks/kioskhub/internal/intent"
	"github.com/reliefworks/kioskhub/internal/repository"
	"github.com/reliefworks/kioskhub/internal/retrieval"
	"github.com/reliefworks/kioskhub/internal/server"
	"github.com/reliefworks/kioskhub/internal/service"
	"github.com/reliefworks/kioskhub/internal/shelter"
	"github.com/reliefworks/kioskhub/internal/storage"
	"github.com/reliefworks/kioskhub/internal/testutil"
)

const embeddingDims = 1536

// wordHashEmbedder is a deterministic stand-in for the embedding API: each
// lowercased word is hashed into one of the vector dimensions and the result
// is L2-normalized. Texts sharing words score high on cosine similarity, which
// is enough to drive the gating pipeline end to end without a network call.
type wordHashEmbedder struct{}

func (wordHashEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (e wordHashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.EmbedText(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	HTTPClient   *http.Client

	EntryRepo    *repository.EntryRepository
	EmbeddingSvc *service.EmbeddingService
	SnapshotSvc  *service.SnapshotService
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "kioskhub-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.startServer(port)
	return env
}

// startServer wires the full pipeline over the test containers, with the
// word-hash embedder in place of the embedding API.
func (e *E2ETestEnv) startServer(port int) {
	entryRepo := repository.NewEntryRepository(e.Pool)
	jobRepo := repository.NewEmbeddingJobRepository(e.Pool)
	configRepo := repository.NewShelterConfigRepository(e.Pool)
	feedbackRepo := repository.NewFeedbackRepository(e.Pool)
	biasRepo := repository.NewBiasRepository(e.Pool)
	queryLogRepo := repository.NewQueryLogRepository(e.Pool)

	embedder := wordHashEmbedder{}

	classifier, err := intent.NewClassifier(e.Ctx, embedder)
	if err != nil {
		e.T.Fatalf("failed to build intent classifier: %v", err)
	}

	corpusCache := corpus.NewCache(entryRepo)
	shelterCache := shelter.NewConfigCache(configRepo)
	biasProvider := bias.NewProvider(biasRepo, time.Minute)

	engine := retrieval.NewEngine(classifier, embedder, corpusCache, shelterCache, biasProvider, retrieval.Config{})

	querySvc := service.NewQueryService(engine, nil, queryLogRepo, feedbackRepo)
	kbSvc := service.NewKBService(entryRepo, jobRepo, configRepo, corpusCache, shelterCache).
		WithTxRunner(repository.NewTxRunner(e.Pool))

	e.EntryRepo = entryRepo
	e.EmbeddingSvc = service.NewEmbeddingService(embedder, entryRepo, corpusCache)
	e.SnapshotSvc = service.NewSnapshotService(kbSvc, e.S3Client)

	router := server.NewRouter(server.RouterConfig{
		QueryHandler: handlers.NewQueryHandler(querySvc),
		KBHandler:    handlers.NewKBHandler(kbSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, e.ServerURL, 10*time.Second)

	e.ServerCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// EmbedPending synchronously embeds every entry still missing a vector, the
// same work the background worker would do between poll ticks.
func (e *E2ETestEnv) EmbedPending() {
	entries, err := e.EntryRepo.ListMissingEmbeddings(e.Ctx, 100)
	if err != nil {
		e.T.Fatalf("failed to list entries missing embeddings: %v", err)
	}
	for _, entry := range entries {
		if err := e.EmbeddingSvc.GenerateEmbedding(e.Ctx, entry.ID); err != nil {
			e.T.Fatalf("failed to embed entry %s: %v", entry.ID, err)
		}
	}
}

// BuildBinaries builds the kioskctl and kioskhubd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "kioskhub-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "kioskhubd"), "./cmd/kioskhubd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build kioskhubd: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "kioskctl"), "./cmd/kioskctl")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build kioskctl: %v\n%s", err, out)
	}
}

// RunKioskctl runs the kioskctl CLI against the test server
func (e *E2ETestEnv) RunKioskctl(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "kioskctl"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("KIOSKHUB_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PUT", path, body)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("PATCH", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
