package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/productenquiry/internal/auth"
	"greendrake/productenquiry/internal/models"
)

const (
	testAppBinary         = "./productenquiry_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/v1/ping"

	testDbName        = "productenquiry_integration"
	testAdminEmail    = "owner@integration.example.com"
	testAdminPassword = "integration-pass"
	testProductID     = int64(9001)
)

var captchaPattern = regexp.MustCompile(`(\d+) \+ (\d+) = \?`)

// TestMain builds the binary, seeds the catalog and runs an API and a worker process.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	if os.Getenv("MONGO_URI") == "" {
		log.Println("MONGO_URI not set; skipping integration tests.")
		return
	}

	defer func() {
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	buildOutput, err := exec.Command("go", "build", "-o", testAppBinary, ".").CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}

	if err := seedTestData(); err != nil {
		log.Printf("Failed to seed test data: %v", err)
		os.Exit(1)
	}
	defer cleanupTestData()

	commonEnv := append(os.Environ(),
		"MONGO_DB_NAME="+testDbName,
		"JWT_SECRET=integration-test-secret",
		"ADMIN_EMAIL="+testAdminEmail,
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"SMTP_FROM_ADDRESS=test@example.com",
	)

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(commonEnv,
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=10",
		"RATE_LIMIT_SOFT_REFILL_RATE=10",
		"RATE_LIMIT_HARD_BUCKET_SIZE=50",
		"RATE_LIMIT_HARD_REFILL_RATE=50",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(commonEnv, "SERVICE_API_PORT="+testServiceApiPortBg)
	bgCmd.Stderr = os.Stderr
	bgCmd.Stdout = os.Stdout

	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}
	if err := bgCmd.Start(); err != nil {
		_ = apiCmd.Process.Kill()
		log.Printf("Failed to start Background Worker process: %v", err)
		os.Exit(1)
	}
	defer func() {
		for _, cmd := range []*exec.Cmd{bgCmd, apiCmd} {
			if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
				_ = cmd.Process.Kill()
				continue
			}
			_, _ = cmd.Process.Wait()
		}
		log.Println("Integration Test Teardown: Application processes stopped.")
	}()

	if !waitForPing() {
		log.Printf("Application failed to start within %v", startupTimeout)
		os.Exit(1)
	}
	// The worker has no health endpoint.
	time.Sleep(2 * time.Second)

	exitCode := m.Run()
	log.Printf("Integration Test Teardown: Tests finished with exit code %d.", exitCode)
}

func waitForPing() bool {
	start := time.Now()
	for time.Since(start) < startupTimeout {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func testDatabase(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		return nil, nil, err
	}
	return client, client.Database(testDbName), nil
}

func seedTestData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, database, err := testDatabase(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := database.Drop(ctx); err != nil {
		return fmt.Errorf("failed to reset test database: %w", err)
	}
	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		return err
	}
	if _, err := database.Collection("users").InsertOne(ctx, models.User{
		ID: "admin-1", Name: "Owner", Email: testAdminEmail, PasswordHash: hash, IsAdmin: true, CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	if _, err := database.Collection("products").InsertOne(ctx, models.Product{
		ID: testProductID, Name: "Integration Oak Chair", Type: models.ProductTypeSimple, Price: 49.5, AuthorID: "admin-1",
	}); err != nil {
		return fmt.Errorf("failed to seed product: %w", err)
	}
	if _, err := database.Collection("configuration").InsertOne(ctx, bson.M{
		"key": models.OptionEnableProductEnquiry, "value": "yes", "public": true,
	}); err != nil {
		return fmt.Errorf("failed to enable product enquiry: %w", err)
	}
	return nil
}

func cleanupTestData() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, database, err := testDatabase(ctx)
	if err != nil {
		log.Printf("Integration Test Teardown: %v", err)
		return
	}
	defer client.Disconnect(ctx)
	if err := database.Drop(ctx); err != nil {
		log.Printf("Integration Test Teardown: failed to drop test database: %v", err)
	}
}

// --- Helpers ---

type visitor struct {
	t      *testing.T
	client *http.Client
}

func newVisitor(t *testing.T) *visitor {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &visitor{t: t, client: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (v *visitor) getJSON(path string, dst interface{}) {
	resp, err := v.client.Get(testAppURL + path)
	require.NoError(v.t, err)
	defer resp.Body.Close()
	require.Equal(v.t, http.StatusOK, resp.StatusCode)
	require.NoError(v.t, json.NewDecoder(resp.Body).Decode(dst))
}

func (v *visitor) ajax(form url.Values) (int, []byte) {
	resp, err := v.client.PostForm(testAppURL+"/v1/ajax", form)
	require.NoError(v.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(v.t, err)
	return resp.StatusCode, body
}

type ajaxResult struct {
	Success bool `json:"success"`
	Data    struct {
		Code                string `json:"code"`
		NotificationMessage string `json:"notification_message"`
		HTML                string `json:"html"`
	} `json:"data"`
}

func pollTestEmail(t *testing.T, templateID, to string) map[string]interface{} {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{"method": "getTestEmail", "arguments": []string{templateID, to}})
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Post(testServiceApiURL+"/api", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		if resp.StatusCode == http.StatusOK {
			var out struct {
				Data map[string]interface{} `json:"data"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			resp.Body.Close()
			return out.Data
		}
		resp.Body.Close()
	}
	t.Fatalf("no %s email for %s", templateID, to)
	return nil
}

// --- Tests ---

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_EnquiryFlow(t *testing.T) {
	v := newVisitor(t)

	var nonceResp struct {
		Data struct {
			Nonce string `json:"nonce"`
		} `json:"data"`
	}
	v.getJSON("/v1/nonce", &nonceResp)
	nonce := nonceResp.Data.Nonce
	require.NotEmpty(t, nonce)

	status, body := v.ajax(url.Values{
		"action":          {"add_product_for_enquiry"},
		"wcpe_ajax_nonce": {nonce},
		"product_id":      {strconv.FormatInt(testProductID, 10)},
		"quantity":        {"2"},
	})
	require.Equal(t, http.StatusOK, status)
	var added ajaxResult
	require.NoError(t, json.Unmarshal(body, &added), string(body))
	assert.True(t, added.Success)
	assert.Equal(t, "Integration Oak Chair has been added to enquiry list.", added.Data.NotificationMessage)

	var block struct {
		Data struct {
			HTML  string `json:"html"`
			Nonce string `json:"nonce"`
		} `json:"data"`
	}
	v.getJSON("/v1/enquiry", &block)
	assert.Contains(t, block.Data.HTML, "Integration Oak Chair")
	m := captchaPattern.FindStringSubmatch(block.Data.HTML)
	require.Len(t, m, 3, "captcha question rendered")
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])

	// A wrong captcha is reported with the other validation errors.
	status, body = v.ajax(url.Values{
		"action":          {"submit_enquiry"},
		"wcpe_ajax_nonce": {block.Data.Nonce},
		"first_name":      {"Jane"},
		"last_name":       {"Doe"},
		"email":           {"jane@integration.example.com"},
		"phone":           {"9889988998"},
		"captcha_answer":  {strconv.Itoa(a + b + 1)},
	})
	require.Equal(t, http.StatusOK, status)
	var rejected ajaxResult
	require.NoError(t, json.Unmarshal(body, &rejected), string(body))
	assert.False(t, rejected.Success)
	assert.Equal(t, "wcpe-enquiry-not-submitted", rejected.Data.Code)

	status, body = v.ajax(url.Values{
		"action":          {"submit_enquiry"},
		"wcpe_ajax_nonce": {block.Data.Nonce},
		"first_name":      {"Jane"},
		"last_name":       {"Doe"},
		"email":           {"jane@integration.example.com"},
		"phone":           {"9889988998"},
		"comment":         {"Need two by Friday"},
		"captcha_answer":  {strconv.Itoa(a + b)},
	})
	require.Equal(t, http.StatusOK, status)
	var submitted ajaxResult
	require.NoError(t, json.Unmarshal(body, &submitted), string(body))
	require.True(t, submitted.Success, string(body))
	assert.Equal(t, "wcpe-enquiry-submitted", submitted.Data.Code)
	assert.Contains(t, submitted.Data.HTML, "You have not yet added any product to your enquiry list.")

	// With no recipient options enabled the admin is notified.
	mail := pollTestEmail(t, "new_enquiry", testAdminEmail)
	assert.Contains(t, mail["subject"], "Jane Doe")
	assert.True(t, strings.Contains(mail["body"].(string), "Integration Oak Chair"))

	// The admin API sees the stored enquiry.
	loginBody, _ := json.Marshal(map[string]string{"email": testAdminEmail, "password": testAdminPassword})
	resp, err := http.Post(testAppURL+"/v1/admin/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()
	require.NotEmpty(t, login.Token)

	req, _ := http.NewRequest(http.MethodGet, testAppURL+"/v1/admin/enquiries", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Enquiries []models.EnquiryRecord `json:"enquiries"`
		Total     int64                  `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, int64(1), list.Total)
	assert.Equal(t, "Jane", list.Enquiries[0].Enquirer.FirstName)
	assert.Equal(t, []string{testAdminEmail}, list.Enquiries[0].Recipients)

	// Seeded collections are untouched by the flow.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, database, err := testDatabase(ctx)
	require.NoError(t, err)
	defer client.Disconnect(ctx)
	n, err := database.Collection("enquiries").CountDocuments(ctx, bson.M{"items.item_id": testProductID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
