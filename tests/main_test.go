package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/userpeaseonly/basirat-course/backend/config"
	"github.com/userpeaseonly/basirat-course/backend/models"
	"github.com/userpeaseonly/basirat-course/backend/routes"
	"github.com/userpeaseonly/basirat-course/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
)

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	os.Exit(code)
}

func setup() {
	cfg = &config.Config{
		JWTSecret:          "testsecret",
		ServerPort:         "8080",
		DefaultPhoneRegion: "UZ",
	}

	var err error
	db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	if err := utils.Migrate(db); err != nil {
		panic(err)
	}

	app = fiber.New()
	routes.SetupRoutes(app, db, cfg)
}

var userSeq int

// createUser inserts a user directly and returns it with a valid token.
func createUser(t *testing.T, isStudent bool) (models.User, string) {
	t.Helper()

	userSeq++
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	user := models.User{
		PhoneNumber:  fmt.Sprintf("+99890%07d", userSeq),
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", userSeq),
		PasswordHash: string(hashed),
		IsStudent:    isStudent,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}

	token, err := utils.GenerateJWTToken(user.ID, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return user, token
}

// doRequest fires a request against the test app and decodes the JSON body.
func doRequest(t *testing.T, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &result)
	}
	return resp, result
}

// doRequestList decodes responses whose top level is a JSON array.
func doRequestList(t *testing.T, method, path, token string) (*http.Response, []interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var result []interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &result)
	}
	return resp, result
}
